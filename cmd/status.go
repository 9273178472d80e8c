package cmd

import (
	"errors"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/stint/internal/interval"
	"github.com/fakeyudi/stint/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the recorded interval log",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openLog()
		if err != nil {
			return err
		}

		records, err := log.Records()
		if err != nil {
			if errors.Is(err, store.ErrNoRecords) {
				cmd.Println("No recorded intervals yet. Run `stint track` first.")
				return nil
			}
			return err
		}

		totals := make(map[interval.Kind]time.Duration)
		counts := make(map[interval.Kind]int)
		var first, last time.Time
		for _, r := range records {
			totals[r.Kind] += r.Duration()
			counts[r.Kind]++
			if first.IsZero() || r.StartTime().Before(first) {
				first = r.StartTime()
			}
			if r.EndTime().After(last) {
				last = r.EndTime()
			}
		}

		cmd.Printf("Interval log: %s\n", log.Path())
		cmd.Printf("  %d intervals between %s and %s\n\n",
			len(records),
			first.Format("2006-01-02 15:04:05"),
			last.Format("2006-01-02 15:04:05"))

		kinds := make([]interval.Kind, 0, len(totals))
		for k := range totals {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return totals[kinds[i]] > totals[kinds[j]] })

		for _, k := range kinds {
			cmd.Printf("  %-14s %10s  (%d intervals)\n",
				k, totals[k].Truncate(time.Second), counts[k])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

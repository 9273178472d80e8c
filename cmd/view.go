package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/stint/internal/store"
	"github.com/fakeyudi/stint/internal/tui"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse the recorded interval log",
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

		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			printRecords(cmd.OutOrStdout(), records)
			return nil
		}
		return tui.Run(records, log.Path())
	},
}

// printRecords writes a plain-text listing to stdout.
func printRecords(w io.Writer, records []store.Record) {
	for _, r := range records {
		fmt.Fprintf(w, "%s  %-14s %10s",
			r.StartTime().Format("2006-01-02 15:04:05"),
			r.Kind,
			r.Duration())
		if r.Document != nil {
			fmt.Fprintf(w, "  %s (%s)", r.Document.Title, r.Document.Category)
		}
		if r.ModCount > 0 {
			fmt.Fprintf(w, "  %d edits", r.ModCount)
		}
		if r.Perspective != "" {
			fmt.Fprintf(w, "  %s", r.Perspective)
		}
		fmt.Fprintln(w)
	}
}

func init() {
	viewCmd.Flags().BoolVarP(&plainOutput, "plain", "p", false, "plain text output, no TUI")
	rootCmd.AddCommand(viewCmd)
}

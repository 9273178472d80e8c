package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/stint/internal/store"
	"github.com/fakeyudi/stint/internal/transmit"
)

var clearAfterPush bool

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Transmit recorded intervals to the stint server",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openLog()
		if err != nil {
			return err
		}

		records, err := log.Records()
		if err != nil {
			if errors.Is(err, store.ErrNoRecords) {
				cmd.Println("Nothing to push.")
				return nil
			}
			return err
		}

		client := transmit.New(cfg.ServerURL)
		accepted, err := client.Push(cmd.Context(), records)
		if err != nil {
			return fmt.Errorf("pushing %d intervals: %w", len(records), err)
		}
		cmd.Printf("Pushed %d intervals (%d accepted) to %s\n", len(records), accepted, cfg.ServerURL)

		if clearAfterPush {
			if err := log.Clear(); err != nil {
				return err
			}
			cmd.Println("Cleared local interval log.")
		}
		return nil
	},
}

func init() {
	pushCmd.Flags().BoolVar(&clearAfterPush, "clear", false, "clear the local log after a successful push")
	rootCmd.AddCommand(pushCmd)
}

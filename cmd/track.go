package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/stint/internal/dispatch"
	"github.com/fakeyudi/stint/internal/feed"
	"github.com/fakeyudi/stint/internal/interval"
	"github.com/fakeyudi/stint/internal/watch"
)

var watchDir string

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the tracker, reading IDE events from stdin",
	Long: `Track runs the interval state machine. IDE plugins pipe JSON-line
events into stdin; each event opens, renews, or closes activity intervals.
Closed intervals are appended to the interval log. With --watch, filesystem
writes under the given directory are treated as edit activity as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openLog()
		if err != nil {
			return err
		}

		manager := interval.NewManager(logger)
		manager.AddListener(log)

		resolver := feed.NewResolver()
		d := dispatch.New(manager, resolver, dispatch.Config{
			ReadingTimeout: cfg.ReadingTimeout,
			TypingTimeout:  cfg.TypingTimeout,
			UserTimeout:    cfg.UserTimeout,
		}, logger)

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if watchDir != "" {
			go func() {
				if err := watch.Watch(ctx, watchDir, d, cfg.IgnorePatterns); err != nil {
					logger.Error("filesystem watcher stopped", "err", err)
				}
			}()
		}

		reader := feed.NewReader(resolver, logger)
		err = reader.Run(ctx, cmd.InOrStdin(), d)

		// Whatever is still open ends now; the close listener persists it.
		d.Shutdown(time.Now())

		if err != nil && ctx.Err() == nil {
			return err
		}

		recorded := len(d.Recorded())
		cmd.Printf("Recorded %d intervals to %s\n", recorded, log.Path())
		return nil
	},
}

func init() {
	trackCmd.Flags().StringVarP(&watchDir, "watch", "w", "",
		"also watch this directory for file-write activity")
	rootCmd.AddCommand(trackCmd)
}

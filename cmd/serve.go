package cmd

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/stint/internal/server"
)

var (
	serveAddr string
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingest server intervals are pushed to",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := serveDB
		if dbPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			dbPath = filepath.Join(home, ".local", "share", "stint", "server.db")
		}

		db, err := server.OpenDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		router := server.NewRouter(db, logger)
		logger.Info("stint server listening", "addr", serveAddr, "db", dbPath)
		return http.ListenAndServe(serveAddr, router)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8720", "listen address")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "sqlite database path")
	rootCmd.AddCommand(serveCmd)
}

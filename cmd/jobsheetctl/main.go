package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
)

var (
	// Global flags
	verbose bool
	apiURL  string
	timeout time.Duration

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jobsheetctl",
	Short: "Operate the repair job sheet",
	Long: `jobsheetctl works on the repair job sheet either directly (schema,
jobs, export read the configured spreadsheet) or through a running
jobsheetd (login, status, lookup).

Spreadsheet access uses the same environment as jobsheetd:
SHEETS_BACKEND, GOOGLE_SHEET_ID, GOOGLE_SERVICE_ACCOUNT_EMAIL,
GOOGLE_PRIVATE_KEY, WORKBOOK_PATH, JOBS_TAB, ADMIN_TAB.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger = common.NewLogger(common.LoggingConfig{Level: level, Format: "text"}, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", getenv("JOBSHEET_API", "http://localhost:5000"), "Base URL of jobsheetd")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall command timeout")

	rootCmd.AddCommand(schemaCmd, jobsCmd, exportCmd, loginCmd, statusCmd, lookupCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

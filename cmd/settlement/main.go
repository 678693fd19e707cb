/*
main.go - Settlement CLI entry point

PURPOSE:
  Command-line front end for the settlement engine. Four verbs:

    serve      run the reference settlement server
    close      run the month-close workflow against a server
    reconcile  resume and finish a staged reconciliation
    reset      clear every timelog on the server

COMMAND-LINE FLAGS:
  Global:
    --server   base URL of the settlement server
    --token    credential token (sent as "Basic <token>")
    --staging  path of the local SQLite staging file
    --verbose  debug logging

EXAMPLES:
  # Run the reference server with demo data
  settlement serve --port 8080 --seed-demo

  # Close the month as the admin
  settlement close --server http://localhost:8080 --token admin-token

  # Finish a staged reconciliation, sending rows 0 and 2 to misc cost
  settlement reconcile --misc 0,2

SEE ALSO:
  - api/server.go: Router configuration
  - settle/machine.go: The workflow the close verb drives
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	serverURL   string
	token       string
	stagingPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "settlement",
	Short: "Monthly settlement and timelog reconciliation",
	Long: `settlement drives the monthly accounting close: it probes which
months are still open, commits the close, and walks staged exception
timelogs through reconciliation. It can also run the reference server
the workflow talks to.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "settlement server base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "credential token")
	rootCmd.PersistentFlags().StringVar(&stagingPath, "staging", "settlement-staging.db", "SQLite staging file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package cmd provides the command-line interface for desim.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

const (
	envRecordPath  = "DESIM_RECORD_PATH"
	envRecordDSN   = "DESIM_RECORD_DSN"
	envMonitorPort = "DESIM_MONITOR_PORT"
	envLogLevel    = "DESIM_LOG_LEVEL"
)

// newRootCmd creates the base command when called without any subcommands.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "desim",
		Short: "desim runs discrete-event simulation scenarios.",
		Long: `desim runs discrete-event simulation scenarios made of clocks, ` +
			`tickers and barriers, either built in or loaded from YAML files. ` +
			`Runs can be recorded into SQLite, monitored over HTTP, paced ` +
			`against the wall clock and repeated in batches.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("env-file", "",
		"Load environment variables from this file (default .env if present)")
	rootCmd.PersistentFlags().String("log-level", "",
		"Log level: trace, debug, info, warn, error (default from "+
			envLogLevel+", then info)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := loadEnv(envFile); err != nil {
			return err
		}

		logLevel, _ := cmd.Flags().GetString("log-level")

		return setupLogging(logLevel)
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newScenariosCmd())

	return rootCmd
}

// loadEnv loads the given file into the environment. Without a file, a .env
// file in the working directory is loaded when it exists. Variables that are
// already set are not overwritten.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}

		return nil
	}

	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load()
	}

	return nil
}

func setupLogging(level string) error {
	if level == "" {
		level = os.Getenv(envLogLevel)
	}

	if level == "" {
		level = "info"
	}

	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log.SetLevel(parsed)
	log.SetOutput(os.Stderr)

	return nil
}

// Execute runs the root command and exits, running the exit handlers that
// flush recordings.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

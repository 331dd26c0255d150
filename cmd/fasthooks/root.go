package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/fasthooks/internal/cli"
	"github.com/aretw0/fasthooks/internal/config"
	"github.com/aretw0/fasthooks/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fasthooks",
	Short: "fasthooks runs agent lifecycle hooks",
	Long: `fasthooks reads a hook payload, runs the handlers configured for its stage
and answers with the aggregated decision. Without a subcommand it behaves like "run".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runHook,
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(cli.ExitError)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Configuration file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the configuration and builds the logger it asks for.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.App.LogLevel = lvl
	}
	level, err := logging.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(level, cmd.ErrOrStderr()), nil
}

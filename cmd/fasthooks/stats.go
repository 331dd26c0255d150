package main

import (
	"fmt"

	"github.com/aretw0/fasthooks/internal/cli"
	"github.com/aretw0/fasthooks/internal/config"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [database]",
	Short: "Summarize the SQLite event store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := cfg.Observers.SQLite.Path
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no database given and observers.sqlite.path is not set")
		}
		limit, _ := cmd.Flags().GetInt("errors")
		raw, _ := cmd.Flags().GetBool("raw")

		md, err := cli.StatsMarkdown(cmd.Context(), path, limit)
		if err != nil {
			return err
		}
		return cli.Render(cmd.OutOrStdout(), md, raw)
	},
}

var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "List the configured handlers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Inventory only; no observer is needed.
		cfg.Observers = config.ObserversConfig{}
		rt, err := cli.Build(cfg, logger, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.Close()
		raw, _ := cmd.Flags().GetBool("raw")
		return cli.Render(cmd.OutOrStdout(), cli.HandlersMarkdown(rt), raw)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, handlersCmd)
	statsCmd.Flags().Int("errors", 10, "Number of recent errors to list")
	statsCmd.Flags().Bool("raw", false, "Print markdown without rendering")
	handlersCmd.Flags().Bool("raw", false, "Print markdown without rendering")
}

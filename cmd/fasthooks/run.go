package main

import (
	"github.com/aretw0/fasthooks/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one hook payload from stdin",
	Long: `Reads a hook payload from stdin, runs the matching handlers and writes the
response to stdout. Exits with status 2 when a handler fails.`,
	RunE: runHook,
}

func runHook(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := cli.Build(cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	code, err := cli.RunHook(cmd.Context(), rt, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return &exitError{code: code, err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}

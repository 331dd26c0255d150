package main

import (
	"fmt"

	"github.com/aretw0/fasthooks/internal/cli"
	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events [file]",
	Short: "Replay a JSONL event log",
	Long:  `Prints the events recorded by the jsonl observer, one line each. Defaults to observers.jsonl.path.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := cli.ReplayOptions{Path: cfg.Observers.JSONL.Path}
		if len(args) == 1 {
			opts.Path = args[0]
		}
		if opts.Path == "" {
			return fmt.Errorf("no event log given and observers.jsonl.path is not set")
		}
		opts.HookID, _ = cmd.Flags().GetString("hook")
		opts.Plain, _ = cmd.Flags().GetBool("plain")

		kinds, _ := cmd.Flags().GetStringSlice("kind")
		for _, k := range kinds {
			kind, err := domain.ParseEventKind(k)
			if err != nil {
				return err
			}
			opts.Kinds = append(opts.Kinds, kind)
		}

		_, err = cli.Replay(opts, cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().String("hook", "", "Only show events of this hook_id")
	eventsCmd.Flags().StringSlice("kind", nil, "Only show these event kinds (e.g. handler_error)")
	eventsCmd.Flags().Bool("plain", false, "Disable colors")
}

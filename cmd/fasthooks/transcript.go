package main

import (
	"github.com/aretw0/fasthooks/internal/cli"
	"github.com/spf13/cobra"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript <file>",
	Short: "Summarize a conversation transcript",
	Long:  `Reads the JSONL transcript a hook payload names in transcript_path and reports its tool usage.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		raw, _ := cmd.Flags().GetBool("raw")
		md, err := cli.TranscriptMarkdown(args[0], strict)
		if err != nil {
			return err
		}
		return cli.Render(cmd.OutOrStdout(), md, raw)
	},
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
	transcriptCmd.Flags().Bool("strict", false, "Fail on malformed lines instead of skipping them")
	transcriptCmd.Flags().Bool("raw", false, "Print markdown without rendering")
}

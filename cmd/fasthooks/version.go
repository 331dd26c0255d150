package main

import (
	"fmt"

	"github.com/aretw0/fasthooks"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of fasthooks",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fasthooks version %s\n", fasthooks.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

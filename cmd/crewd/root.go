package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crewd",
	Short: "Agent crew orchestrator",
	Long: `crewd decomposes a goal into role-specialized agent subtasks, executes
them in dependency order against the Anthropic API, and synthesizes a final
answer.

Run a goal locally with "crewd run", or start the HTTP API with
"crewd serve" and observe tasks with "crewd watch".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hylo-ai/crewd/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long: `Display the current crewd configuration.

The API key is shown masked. Configuration is stored at
~/.config/crewd/config.yaml; project-specific overrides can be placed
in .crewd.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayConfig(cfg)
	},
}

// displayConfig prints all configuration values with the API key masked.
func displayConfig(cfg *config.Config) {
	fmt.Printf("config file: %s\n\n", config.GetUserConfigPath())

	key, err := config.GetAPIKey(cfg)
	if err != nil {
		key = ""
	}
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(key))
	if key != "" {
		if err := config.ValidateAPIKey(key); err != nil {
			fmt.Printf("  warning: %v\n", err)
		}
	}
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("anthropic.aws_profile: %s\n", cfg.Anthropic.AWSProfile)
	fmt.Printf("completion.timeout: %s\n", cfg.Completion.Timeout)
	fmt.Printf("completion.max_tokens: %d\n", cfg.Completion.MaxTokens)
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("database.path: %s\n", cfg.Database.Path)
	fmt.Printf("watch.poll_interval: %s\n", cfg.Watch.PollInterval)
}

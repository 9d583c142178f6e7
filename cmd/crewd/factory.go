package main

import (
	"fmt"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hylo-ai/crewd/internal/completion"
	"github.com/hylo-ai/crewd/internal/config"
	"github.com/hylo-ai/crewd/internal/crew"
	"github.com/hylo-ai/crewd/internal/roles"
	"github.com/hylo-ai/crewd/internal/store"
)

// buildClient creates the completion client from config.
func buildClient(cfg *config.Config) (completion.Client, error) {
	apiKey, _ := config.GetAPIKey(cfg)

	client, err := completion.NewAnthropicClient(completion.AnthropicConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		MaxTokens:     int64(cfg.Completion.MaxTokens),
		Timeout:       cfg.Completion.Timeout,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}
	return client, nil
}

// openStore opens and migrates the task store at the configured path.
func openStore(cfg *config.Config) (*store.DB, error) {
	path := cfg.Database.Path
	if path == "" {
		path = store.DefaultPath()
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// buildManager assembles the task manager with its debug logger.
func buildManager(cfg *config.Config, db *store.DB) (*crew.Manager, error) {
	client, err := buildClient(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := roles.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("load role registry: %w", err)
	}

	logger, err := crew.NewDebugLogger(filepath.Join(filepath.Dir(db.Path()), "crewd-debug.log"))
	if err != nil {
		logger = crew.NopLogger()
	}

	return crew.NewManager(db, client, registry, logger), nil
}

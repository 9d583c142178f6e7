package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hylo-ai/crewd/internal/config"
	"github.com/hylo-ai/crewd/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Watch a task's progress until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		db, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()

		task, err := tui.Watch(db, args[0], cfg.Watch.PollInterval)
		if err != nil {
			return err
		}
		if task != nil && task.Status.Terminal() {
			printTaskResult(task)
		}
		return nil
	},
}

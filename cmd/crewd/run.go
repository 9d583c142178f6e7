package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hylo-ai/crewd/internal/config"
	"github.com/hylo-ai/crewd/internal/tui"
	"github.com/hylo-ai/crewd/pkg/models"
)

// localUser is the identity used for tasks created from the CLI.
const localUser = "local"

var runPlain bool

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run a goal locally and watch it to completion",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goal := strings.Join(args, " ")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		db, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()

		manager, err := buildManager(cfg, db)
		if err != nil {
			return err
		}

		task, err := manager.CreateTask(cmd.Context(), localUser, goal)
		if err != nil {
			return err
		}

		if runPlain {
			manager.Wait(task.ID)
		} else {
			if _, err := tui.Watch(db, task.ID, cfg.Watch.PollInterval); err != nil {
				return err
			}
			// The user may have detached before the run finished.
			manager.Wait(task.ID)
		}

		final, err := manager.GetTask(context.Background(), localUser, task.ID)
		if err != nil {
			return err
		}
		printTaskResult(final)
		return nil
	},
}

func printTaskResult(task *models.Task) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	bold.Printf("Task %s\n", task.ID)
	switch task.Status {
	case models.TaskStatusCompleted:
		green.Println("completed")
		fmt.Println()
		fmt.Println(task.FinalOutput)
	case models.TaskStatusStopped:
		yellow.Println("stopped")
		fmt.Println()
		fmt.Println(task.FinalOutput)
	case models.TaskStatusError:
		red.Println("error")
		fmt.Println()
		fmt.Println(task.ErrorMessage)
	default:
		yellow.Println(string(task.Status))
	}
}

func init() {
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "Wait without the TUI and print the result")
}

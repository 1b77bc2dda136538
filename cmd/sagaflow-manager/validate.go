package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/sagaflow/pkg/cmd"
	"github.com/urfave/cli/v3"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the config file and print the rollback function table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML config file",
				Required: true,
				Sources:  cli.EnvVars("CONFIG_FILE"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := slog.With(
				"module", "sagaflow-manager",
				"action", "validate",
			)

			cfg, err := cmd.LoadConfig(logger, command.String("config"), "")
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(os.Stdout, "Rollback Functions:")
			_, _ = fmt.Fprintln(os.Stdout, "===================")

			entries := cfg.Rollbacks.Entries()
			for _, process := range entries.Processes() {
				for _, rollback := range entries[process] {
					_, _ = fmt.Fprintf(os.Stdout, "  %s -> %s\n", process, rollback)
				}
			}

			_, _ = fmt.Fprintf(os.Stdout, "\nBrokers: %v\n", cfg.Brokers)
			_, _ = fmt.Fprintf(os.Stdout, "Consumer group: %s\n", cfg.ConsumerGroup)
			_, _ = fmt.Fprintf(os.Stdout, "Topics: status=%s edits=%s triggers=%s\n",
				cfg.Topics.Status, cfg.Topics.Edits, cfg.Topics.Triggers)

			return nil
		},
	}
}

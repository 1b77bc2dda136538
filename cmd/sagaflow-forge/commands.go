package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/sagaflow/pkg/channels/kafka"
	"github.com/dukex/sagaflow/pkg/cmd"
	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/forge"
	"github.com/dukex/sagaflow/pkg/log"
	"github.com/dukex/sagaflow/pkg/web"
	"github.com/urfave/cli/v3"
)

const defaultPort = 8082

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka)",
			Value:   "kafka",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "edits-topic",
			Usage:   "Topic the managers read workflow edits from",
			Value:   events.EditsTopic,
			Sources: cli.EnvVars("EDITS_TOPIC"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

func newForge(command *cli.Command, logger *slog.Logger) (*forge.Forge, func(), error) {
	brokers := kafka.ParseBrokers(command.String("kafka-brokers"))

	pub, err := cmd.NewPublisher(command.String("event-bus"), brokers, logger)
	if err != nil {
		return nil, nil, err
	}

	closePub := func() {
		if err := pub.Close(); err != nil {
			logger.Error("Failed to close publisher", "error", err)
		}
	}

	return forge.New(logger, pub, command.String("edits-topic")), closePub, nil
}

func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Accept workflow edits over HTTP (POST /edits)",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the forge API on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("sagaflow-forge")

			f, closePub, err := newForge(command, logger)
			if err != nil {
				return err
			}
			defer closePub()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			app := web.NewApp(logger, web.Options{Name: "Sagaflow Forge", Forge: f})

			go func() {
				<-ctx.Done()

				if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
					logger.Error("Failed to shutdown forge API", "error", err)
				}
			}()

			logger.InfoContext(ctx, "Starting forge API", "port", command.Int("port"), "topic", f.Topic())

			return app.Listen(":" + strconv.Itoa(command.Int("port")))
		},
	}
}

func NewPublishCommand() *cli.Command {
	return &cli.Command{
		Name:    "publish",
		Aliases: []string{"p"},
		Usage:   "Validate a workflow edit document and publish it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the JSON edit document",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("sagaflow-forge").With("action", "publish")

			payload, err := os.ReadFile(command.String("file"))
			if err != nil {
				return fmt.Errorf("failed to read edit document: %w", err)
			}

			f, closePub, err := newForge(command, logger)
			if err != nil {
				return err
			}
			defer closePub()

			edit, err := f.Submit(ctx, payload)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(os.Stdout, "Published %s\n", edit)

			return nil
		},
	}
}

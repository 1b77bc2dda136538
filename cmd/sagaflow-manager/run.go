package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/sagaflow/pkg/cmd"
	"github.com/dukex/sagaflow/pkg/log"
	"github.com/dukex/sagaflow/pkg/manager"
	"github.com/dukex/sagaflow/pkg/metrics"
	"github.com/dukex/sagaflow/pkg/otelhelper"
	"github.com/dukex/sagaflow/pkg/registry"
	"github.com/dukex/sagaflow/pkg/web"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

const (
	defaultPort     = 8081
	shutdownTimeout = 5 * time.Second
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "manager-id",
			Aliases: []string{"id"},
			Usage:   "Custom manager ID (auto-generated if not provided)",
			Value:   "",
			Sources: cli.EnvVars("MANAGER_ID"),
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML config file (brokers, topics, rollback functions)",
			Sources: cli.EnvVars("CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers, overrides the config file",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, memory); memory keeps every edit for the life of the process",
			Value:   "kafka",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.IntFlag{
			Name:    "http-port",
			Aliases: []string{"p"},
			Usage:   "Port of the admin API, 0 disables it",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "report-schedule",
			Usage:   "Cron spec of the registry report, empty disables it",
			Value:   "@every 1m",
			Sources: cli.EnvVars("REPORT_SCHEDULE"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
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

func runManager(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	managerID := command.String("manager-id")
	if managerID == "" {
		managerID = "manager-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("sagaflow-manager")

	logger.InfoContext(ctx, "Initializing Sagaflow Manager", "manager_id", managerID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, "sagaflow-manager", command.Bool("tracing"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	cfg, err := cmd.LoadConfig(logger, command.String("config"), command.String("kafka-brokers"))
	if err != nil {
		return err
	}

	channels, closeChannels, err := cmd.NewChannels(command.String("event-bus"), cfg.Brokers, cfg.ConsumerGroup, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := closeChannels(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	reg := registry.NewRegistry(logger)

	m := manager.New(managerID, logger, channels, cfg.Rollbacks,
		manager.WithTracer(tracer),
		manager.WithRegistry(reg),
		manager.WithTopics(manager.Topics{
			Status:   cfg.Topics.Status,
			Edits:    cfg.Topics.Edits,
			Triggers: cfg.Topics.Triggers,
		}),
	)

	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("failed to start manager: %w", err)
	}

	if schedule := command.String("report-schedule"); schedule != "" {
		reporter := manager.NewReporter(logger, reg)
		if err := reporter.Start(schedule); err != nil {
			return err
		}

		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			reporter.Stop(stopCtx)
		}()
	}

	if port := command.Int("http-port"); port > 0 {
		app := web.NewApp(logger, web.Options{
			Name:     "Sagaflow Manager",
			Registry: reg,
			Metrics:  metrics.NewRegistry(),
		})

		go func() {
			if err := app.Listen(":" + strconv.Itoa(port)); err != nil {
				logger.Error("Admin API stopped", "error", err)
			}
		}()

		defer func() {
			if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				logger.Error("Failed to shutdown admin API", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down manager")

	m.Wait()

	return nil
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/sagaflow/pkg/channels/kafka"
	"github.com/dukex/sagaflow/pkg/config"
)

// LoadConfig reads the config file when path is set and applies the broker
// override. Without a file the defaults apply and the rollback table is empty.
func LoadConfig(logger *slog.Logger, path, brokersOverride string) (*config.Config, error) {
	cfg := config.Default()

	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		cfg = loaded
	}

	if brokers := kafka.ParseBrokers(brokersOverride); len(brokers) > 0 {
		cfg.Brokers = brokers
	}

	logger.Info("Configuration loaded",
		"file", path,
		"brokers", cfg.Brokers,
		"consumer_group", cfg.ConsumerGroup,
		"rollback_functions", cfg.Rollbacks.Len(),
	)

	return cfg, nil
}

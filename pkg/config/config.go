// Package config loads the manager configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultConsumerGroup = "manager"

var ErrInvalidConfig = errors.New("invalid configuration")

// File is the structure of the manager YAML file.
type File struct {
	Brokers           []string        `yaml:"brokers"            validate:"dive,hostname_port"`
	ConsumerGroup     string          `yaml:"consumer_group"`
	Topics            TopicsFile      `yaml:"topics"`
	RollbackFunctions []RollbackEntry `yaml:"rollback_functions" validate:"dive"`
}

type TopicsFile struct {
	Status   string `yaml:"status"`
	Edits    string `yaml:"edits"`
	Triggers string `yaml:"triggers"`
}

// RollbackEntry maps a process to one compensating process, both in
// "service.function" form. Repeating a process adds another compensation.
type RollbackEntry struct {
	Process  string `yaml:"process"  validate:"required"`
	Rollback string `yaml:"rollback" validate:"required"`
}

// Config is the validated, ready to use configuration.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	Topics        TopicsFile
	Rollbacks     *models.RollbackTable
}

// Default is used when no file is given: default topics and no rollback functions.
func Default() *Config {
	return &Config{
		ConsumerGroup: DefaultConsumerGroup,
		Topics:        TopicsFile{}.withDefaults(),
		Rollbacks:     models.NewRollbackTable(),
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	rollbacks := models.NewRollbackTable()

	for i, entry := range file.RollbackFunctions {
		process, err := models.ParseProcess(entry.Process)
		if err != nil {
			return nil, fmt.Errorf("%w: rollback_functions[%d].process: %w", ErrInvalidConfig, i, err)
		}

		rollback, err := models.ParseProcess(entry.Rollback)
		if err != nil {
			return nil, fmt.Errorf("%w: rollback_functions[%d].rollback: %w", ErrInvalidConfig, i, err)
		}

		rollbacks.Add(process, rollback)
	}

	group := file.ConsumerGroup
	if group == "" {
		group = DefaultConsumerGroup
	}

	return &Config{
		Brokers:       file.Brokers,
		ConsumerGroup: group,
		Topics:        file.Topics.withDefaults(),
		Rollbacks:     rollbacks,
	}, nil
}

func (t TopicsFile) withDefaults() TopicsFile {
	if t.Status == "" {
		t.Status = events.StatusTopic
	}

	if t.Edits == "" {
		t.Edits = events.EditsTopic
	}

	if t.Triggers == "" {
		t.Triggers = events.TriggersTopic
	}

	return t
}

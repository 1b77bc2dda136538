package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/metrics"
	"github.com/dukex/sagaflow/pkg/models"
	"github.com/dukex/sagaflow/pkg/otelhelper"
	"github.com/dukex/sagaflow/pkg/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Topics names the three broker topics the manager talks to.
type Topics struct {
	Status   string
	Edits    string
	Triggers string
}

func DefaultTopics() Topics {
	return Topics{
		Status:   events.StatusTopic,
		Edits:    events.EditsTopic,
		Triggers: events.TriggersTopic,
	}
}

// Channels are the transport endpoints. Status must be a group subscriber so
// each report reaches one manager; Edits must reach every manager.
type Channels struct {
	Status    message.Subscriber
	Edits     message.Subscriber
	Publisher message.Publisher
}

// Manager owns the workflow registry and runs the status and edits loops against it.
type Manager struct {
	id       string
	logger   *slog.Logger
	tracer   trace.Tracer
	topics   Topics
	channels Channels
	codec    *events.Codec
	registry *registry.Registry
	executor *Executor
	ingester *Ingester
	wg       sync.WaitGroup
}

type Option func(*Manager)

func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

func WithTopics(topics Topics) Option {
	return func(m *Manager) {
		m.topics = topics
	}
}

// WithRegistry shares an existing registry, e.g. with the admin API.
func WithRegistry(reg *registry.Registry) Option {
	return func(m *Manager) {
		m.registry = reg
	}
}

func New(
	id string,
	logger *slog.Logger,
	channels Channels,
	rollbacks *models.RollbackTable,
	opts ...Option,
) *Manager {
	m := &Manager{
		id:       id,
		logger:   logger.With("module", "manager", "manager_id", id),
		tracer:   otel.Tracer("sagaflow-manager"),
		topics:   DefaultTopics(),
		channels: channels,
		codec:    events.NewCodec(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.registry == nil {
		m.registry = registry.NewRegistry(logger)
	}

	m.executor = NewExecutor(logger, m.registry, rollbacks)
	m.ingester = NewIngester(logger, m.registry)

	return m
}

func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// Start subscribes to both topics and runs each loop in its own goroutine.
// The loops stop when ctx is cancelled; Wait blocks until they have.
func (m *Manager) Start(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting manager", "topics", fmt.Sprintf("%+v", m.topics))

	edits, err := m.channels.Edits.Subscribe(ctx, m.topics.Edits)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", m.topics.Edits, err)
	}

	statuses, err := m.channels.Status.Subscribe(ctx, m.topics.Status)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", m.topics.Status, err)
	}

	m.wg.Add(2)

	go func() {
		defer m.wg.Done()

		consume(ctx, m.logger, m.tracer, metrics.LoopEdits, edits, m.handleEdit)
	}()

	go func() {
		defer m.wg.Done()

		consume(ctx, m.logger, m.tracer, metrics.LoopStatus, statuses, m.handleStatus)
	}()

	m.logger.InfoContext(ctx, "Manager started successfully")

	return nil
}

func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) handleEdit(ctx context.Context, msg *message.Message) (string, error) {
	edit, err := m.codec.DecodeEdit(msg.Payload)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to decode edit", "message_id", msg.UUID, "error", err)

		return metrics.OutcomeDecode, nil
	}

	m.logger.InfoContext(ctx, "Received edit", "edit", edit.String())

	if !m.ingester.Apply(ctx, edit) {
		return metrics.OutcomeDuplicate, nil
	}

	return metrics.OutcomeHandled, nil
}

func (m *Manager) handleStatus(ctx context.Context, msg *message.Message) (string, error) {
	report, err := m.codec.DecodeStatus(msg.Payload)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to decode status report", "message_id", msg.UUID, "error", err)

		return metrics.OutcomeDecode, nil
	}

	m.logger.InfoContext(ctx, "Received message", "report", report.String())

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(otelhelper.ManagerIDKey, m.id),
		attribute.String(otelhelper.WorkflowNameKey, report.Name),
		attribute.String(otelhelper.InstanceIDKey, report.UUID),
		attribute.String(otelhelper.ProcessKey, report.Process.String()),
		attribute.String(otelhelper.StatusKey, string(report.Status)),
	)

	triggers, err := m.executor.Plan(ctx, report)
	if err != nil {
		m.logger.WarnContext(ctx, "Skipping status report",
			"workflow", report.Name,
			"uuid", report.UUID,
			"process", report.Process.String(),
			"error", err,
		)

		return metrics.OutcomeSkipped, nil
	}

	for _, trigger := range triggers {
		if err := m.publish(ctx, trigger); err != nil {
			return metrics.OutcomePublish, err
		}
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(otelhelper.TriggerCountKey, len(triggers)))

	return metrics.OutcomeHandled, nil
}

func (m *Manager) publish(ctx context.Context, trigger Trigger) error {
	payload, err := m.codec.Encode(trigger.Message)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(events.TriggerEvent))
	msg.Metadata.Set(events.InstanceMetadataKey, trigger.Message.UUID)
	otelhelper.Inject(ctx, msg.Metadata)

	if err := m.channels.Publisher.Publish(m.topics.Triggers, msg); err != nil {
		return fmt.Errorf("failed to publish %s trigger for %s: %w", trigger.Kind, trigger.Message.Process, err)
	}

	metrics.RecordTrigger(string(trigger.Kind))
	m.logger.DebugContext(ctx, "Sent trigger", "kind", trigger.Kind, "trigger", trigger.Message.String())

	return nil
}

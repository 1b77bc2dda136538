// Package forge validates workflow edit documents and publishes them to the edits topic.
package forge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/otelhelper"
)

var (
	ErrInvalidEdit = errors.New("invalid workflow edit")
	ErrPublish     = errors.New("failed to publish workflow edit")
)

func IsInvalidEdit(err error) bool {
	return errors.Is(err, ErrInvalidEdit)
}

func IsPublishError(err error) bool {
	return errors.Is(err, ErrPublish)
}

type Forge struct {
	logger    *slog.Logger
	codec     *events.Codec
	publisher message.Publisher
	topic     string
}

func New(logger *slog.Logger, publisher message.Publisher, topic string) *Forge {
	if topic == "" {
		topic = events.EditsTopic
	}

	return &Forge{
		logger:    logger.With("module", "forge"),
		codec:     events.NewCodec(),
		publisher: publisher,
		topic:     topic,
	}
}

// Submit validates payload as a ToManagerEdits document and publishes it.
// Every manager subscribed to the edits topic registers it on receipt.
func (f *Forge) Submit(ctx context.Context, payload []byte) (*events.ToManagerEdits, error) {
	if err := validateSchema(payload); err != nil {
		return nil, err
	}

	edit, err := f.codec.DecodeEdit(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
	}

	if edit.Workflow.HasCycle() {
		f.logger.WarnContext(ctx, "Submitted workflow graph contains a cycle", "workflow", edit.Name, "version", edit.Version)
	}

	if err := f.Publish(ctx, edit); err != nil {
		return nil, err
	}

	return edit, nil
}

// Publish sends an already validated edit to the edits topic.
func (f *Forge) Publish(ctx context.Context, edit *events.ToManagerEdits) error {
	payload, err := f.codec.Encode(edit)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(events.EditEvent))
	msg.Metadata.Set(events.WorkflowMetadataKey, edit.Name)
	otelhelper.Inject(ctx, msg.Metadata)

	if err := f.publisher.Publish(f.topic, msg); err != nil {
		return fmt.Errorf("%w %s@%s: %w", ErrPublish, edit.Name, edit.Version, err)
	}

	f.logger.InfoContext(ctx, "Published workflow edit", "edit", edit.String(), "topic", f.topic)

	return nil
}

func (f *Forge) Topic() string {
	return f.topic
}

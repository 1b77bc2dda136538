package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/sagaflow/pkg/metrics"
	"github.com/dukex/sagaflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// handlerFunc processes one message and reports its metrics outcome. A
// returned error leaves the message unacknowledged for redelivery.
type handlerFunc func(ctx context.Context, msg *message.Message) (string, error)

// consume drains messages until ctx is cancelled or the channel closes.
// Messages are acknowledged after they are processed.
func consume(
	ctx context.Context,
	logger *slog.Logger,
	tracer trace.Tracer,
	loop string,
	messages <-chan *message.Message,
	handle handlerFunc,
) {
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stopping consumer due to context cancellation", "loop", loop)

			return
		case msg, ok := <-messages:
			if !ok {
				logger.InfoContext(ctx, "Subscription closed", "loop", loop)

				return
			}

			processMessage(ctx, logger, tracer, loop, msg, handle)
		}
	}
}

func processMessage(
	ctx context.Context,
	logger *slog.Logger,
	tracer trace.Tracer,
	loop string,
	msg *message.Message,
	handle handlerFunc,
) {
	msgCtx := otelhelper.Extract(ctx, msg.Metadata)

	spanCtx, span := otelhelper.StartSpan(msgCtx, tracer, "manager."+loop+" consume",
		attribute.String("messaging.message.id", msg.UUID),
	)
	defer span.End()

	outcome, err := safeHandle(spanCtx, msg, handle)
	metrics.RecordMessage(loop, outcome)

	switch outcome {
	case metrics.OutcomePublish:
		logger.ErrorContext(spanCtx, "Failed to publish triggers, message will be redelivered",
			"loop", loop, "message_id", msg.UUID, "error", err)
		otelhelper.SetError(span, err)
		msg.Nack()

		return
	case metrics.OutcomePanic:
		logger.ErrorContext(spanCtx, "Recovered panic while handling message",
			"loop", loop, "message_id", msg.UUID, "error", err)
		otelhelper.SetError(span, err)
	case metrics.OutcomeDecode, metrics.OutcomeSkipped:
		otelhelper.SetSkipped(span, outcome)
	}

	msg.Ack()
}

func safeHandle(ctx context.Context, msg *message.Message, handle handlerFunc) (outcome string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = metrics.OutcomePanic
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	return handle(ctx, msg)
}

package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span as failed.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// SetSkipped records a message that was dropped without being an error of the manager itself.
func SetSkipped(span trace.Span, reason string, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Unset, reason)
	span.AddEvent("message_skipped", trace.WithAttributes(
		append(attrs, attribute.String("reason", reason))...,
	))
}

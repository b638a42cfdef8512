package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks the span failed and tags it with the deployment error category.
func SetError(span trace.Span, err error, category string, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.String(ErrorCategoryKey, category))

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(ErrorCategoryKey, category))
	span.AddEvent("deployment.failed", trace.WithAttributes(attrs...))
}

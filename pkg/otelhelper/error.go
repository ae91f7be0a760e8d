package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// CampaignAttributes describes a flow on a span.
func CampaignAttributes(id, name string, nodes, edges int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CampaignIDKey, id),
		attribute.String(CampaignNameKey, name),
		attribute.Int(NodeCountKey, nodes),
		attribute.Int(EdgeCountKey, edges),
	}
}

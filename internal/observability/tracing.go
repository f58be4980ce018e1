package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartDBSpan starts a span for database operations
func StartDBSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("DB %s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SurveyMetrics holds custom survey workflow metrics
type SurveyMetrics struct {
	photoAttachments metric.Int64Counter
	submissions      metric.Int64Counter
	replays          metric.Int64Counter
	queueDepth       metric.Int64UpDownCounter
	autosaves        metric.Int64Counter
}

// NewSurveyMetrics creates survey workflow metrics instruments
func NewSurveyMetrics() (*SurveyMetrics, error) {
	meter := otel.Meter(instrumentationName)

	photoAttachments, err := meter.Int64Counter(
		"sitesurvey.photo.attachments",
		metric.WithDescription("Total number of photos attached to surveys"),
		metric.WithUnit("{photos}"),
	)
	if err != nil {
		return nil, err
	}

	submissions, err := meter.Int64Counter(
		"sitesurvey.submissions",
		metric.WithDescription("Total number of survey submissions"),
		metric.WithUnit("{submissions}"),
	)
	if err != nil {
		return nil, err
	}

	replays, err := meter.Int64Counter(
		"sitesurvey.queue.replays",
		metric.WithDescription("Total number of pending upload replay attempts"),
		metric.WithUnit("{replays}"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64UpDownCounter(
		"sitesurvey.queue.depth",
		metric.WithDescription("Number of uploads waiting in the pending queue"),
		metric.WithUnit("{uploads}"),
	)
	if err != nil {
		return nil, err
	}

	autosaves, err := meter.Int64Counter(
		"sitesurvey.session.autosaves",
		metric.WithDescription("Total number of session autosave writes"),
		metric.WithUnit("{saves}"),
	)
	if err != nil {
		return nil, err
	}

	return &SurveyMetrics{
		photoAttachments: photoAttachments,
		submissions:      submissions,
		replays:          replays,
		queueDepth:       queueDepth,
		autosaves:        autosaves,
	}, nil
}

// RecordPhotoAttachment records a photo attached to a room survey
func (m *SurveyMetrics) RecordPhotoAttachment(ctx context.Context, label string, fileSize int64) {
	attrs := []attribute.KeyValue{
		attribute.String("photo.label", label),
		attribute.Int64("photo.size_bytes", fileSize),
	}
	m.photoAttachments.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSubmission records a survey submission outcome
func (m *SurveyMetrics) RecordSubmission(ctx context.Context, status string, photoCount int) {
	attrs := []attribute.KeyValue{
		attribute.String("submission.status", status),
		attribute.Int("photo_count", photoCount),
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attrs...))
	if status == "queued" {
		m.queueDepth.Add(ctx, 1)
	}
}

// RecordReplay records a replay pass over the pending queue
func (m *SurveyMetrics) RecordReplay(ctx context.Context, attempted, delivered int) {
	attrs := []attribute.KeyValue{
		attribute.Int("replay.attempted", attempted),
		attribute.Int("replay.delivered", delivered),
	}
	m.replays.Add(ctx, 1, metric.WithAttributes(attrs...))
	if delivered > 0 {
		m.queueDepth.Add(ctx, int64(-delivered))
	}
}

// RecordAutosave records a debounced session save
func (m *SurveyMetrics) RecordAutosave(ctx context.Context, status string) {
	m.autosaves.Add(ctx, 1, metric.WithAttributes(
		attribute.String("save.status", status),
	))
}

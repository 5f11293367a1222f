package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider manages the lifecycle of the OpenTelemetry tracer
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// AnalysisTracer provides distributed tracing for alerting and analysis operations
type AnalysisTracer struct {
	tracer trace.Tracer
}

// NewTracerProvider creates a new OpenTelemetry tracer provider
func NewTracerProvider(serviceName, serviceVersion, otlpEndpoint string) (*TracerProvider, error) {
	// Create OTLP exporter
	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(), // TODO: Add TLS configuration
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	// Create resource
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.ServiceNamespaceKey.String("vigil-core"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown gracefully shuts down the tracer provider
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

// NewAnalysisTracer creates a new analysis tracer
func NewAnalysisTracer(serviceName string) *AnalysisTracer {
	tracer := otel.Tracer(serviceName)
	return &AnalysisTracer{tracer: tracer}
}

// StartAlertSpan starts a span for alert manager operations
func (at *AnalysisTracer) StartAlertSpan(ctx context.Context, operation, ruleID string) (context.Context, trace.Span) {
	ctx, span := at.tracer.Start(ctx, "alert_operation",
		trace.WithAttributes(
			attribute.String("alert.operation", operation),
			attribute.String("alert.rule_id", ruleID),
			attribute.String("component", "alert-manager"),
		),
	)
	return ctx, span
}

// StartIncidentSpan starts a span for incident lifecycle operations
func (at *AnalysisTracer) StartIncidentSpan(ctx context.Context, operation, incidentID string) (context.Context, trace.Span) {
	ctx, span := at.tracer.Start(ctx, "incident_operation",
		trace.WithAttributes(
			attribute.String("incident.operation", operation),
			attribute.String("incident.id", incidentID),
			attribute.String("component", "alert-manager"),
		),
	)
	return ctx, span
}

// StartAnalysisSpan starts a span for an intelligence engine run
func (at *AnalysisTracer) StartAnalysisSpan(ctx context.Context, analysis string) (context.Context, trace.Span) {
	ctx, span := at.tracer.Start(ctx, "analysis_run",
		trace.WithAttributes(
			attribute.String("analysis.kind", analysis),
			attribute.String("component", "intelligence"),
		),
	)
	return ctx, span
}

// StartCacheOperationSpan starts a span for cache operations
func (at *AnalysisTracer) StartCacheOperationSpan(ctx context.Context, operation, key string) (context.Context, trace.Span) {
	ctx, span := at.tracer.Start(ctx, "cache_operation",
		trace.WithAttributes(
			attribute.String("cache.operation", operation),
			attribute.String("cache.key", key),
			attribute.String("component", "cache"),
		),
	)
	return ctx, span
}

// RecordAnalysisMetrics records analysis performance metrics on a span
func (at *AnalysisTracer) RecordAnalysisMetrics(span trace.Span, duration time.Duration, resultCount int64, success bool) {
	span.SetAttributes(
		attribute.Int64("analysis.duration_ms", duration.Milliseconds()),
		attribute.Int64("analysis.result_count", resultCount),
		attribute.Bool("analysis.success", success),
	)

	if !success {
		span.SetStatus(codes.Error, "analysis failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// RecordError records an error on a span
func (at *AnalysisTracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

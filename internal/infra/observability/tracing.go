package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"scholar/internal/shared/config"
)

const tracerName = "scholar"

// TracerProvider wraps the OpenTelemetry tracer used for tool spans.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// TracerOption customizes NewTracerProvider.
type TracerOption func(*tracerOptions)

type tracerOptions struct {
	exporter       sdktrace.SpanExporter
	serviceVersion string
}

// WithSpanExporter bypasses exporter selection; spans are exported
// synchronously. Used with in-memory exporters.
func WithSpanExporter(exporter sdktrace.SpanExporter) TracerOption {
	return func(o *tracerOptions) { o.exporter = exporter }
}

// WithServiceVersion tags the trace resource.
func WithServiceVersion(version string) TracerOption {
	return func(o *tracerOptions) { o.serviceVersion = version }
}

// NewTracerProvider builds a provider from config. Disabled tracing yields a
// noop tracer.
func NewTracerProvider(cfg config.TracingConfig, opts ...TracerOption) (*TracerProvider, error) {
	var options tracerOptions
	for _, opt := range opts {
		opt(&options)
	}
	if !cfg.Enabled && options.exporter == nil {
		return &TracerProvider{tracer: noop.NewTracerProvider().Tracer(tracerName)}, nil
	}

	if cfg.SampleRate <= 0 || cfg.SampleRate > 1.0 {
		cfg.SampleRate = 1.0
	}

	var spanOpt sdktrace.TracerProviderOption
	if options.exporter != nil {
		spanOpt = sdktrace.WithSyncer(options.exporter)
	} else {
		exporter, err := newExporter(cfg)
		if err != nil {
			return nil, err
		}
		spanOpt = sdktrace.WithBatcher(exporter)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(tracerName),
			semconv.ServiceVersion(options.serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		spanOpt,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)
	return &TracerProvider{provider: provider, tracer: provider.Tracer(tracerName)}, nil
}

func newExporter(cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case "otlp", "":
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		exporter, err = otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	case "zipkin":
		endpoint := cfg.ZipkinEndpoint
		if endpoint == "" {
			endpoint = "http://localhost:9411/api/v2/spans"
		}
		exporter, err = zipkin.New(endpoint)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}
	return exporter, nil
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp != nil && tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the tracer; a nil provider yields a noop tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	if tp == nil || tp.tracer == nil {
		return noop.NewTracerProvider().Tracer(tracerName)
	}
	return tp.tracer
}

// StartSpan starts a span tagged with attrs.
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tp.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Span names.
const (
	SpanSessionRun  = "scholar.session.run"
	SpanToolExecute = "scholar.tool.execute"
)

// Attribute keys.
const (
	AttrSessionID = "scholar.session_id"
	AttrRunID     = "scholar.run_id"
	AttrToolName  = "scholar.tool_name"
	AttrCallID    = "scholar.call_id"
	AttrStatus    = "scholar.status"
	AttrError     = "scholar.error"
)

// SessionAttrs tags a span with the session and run ids.
func SessionAttrs(sessionID, runID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
		attribute.String(AttrRunID, runID),
	}
}

// ToolAttrs tags a span with the tool name and call id.
func ToolAttrs(toolName, callID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrToolName, toolName),
		attribute.String(AttrCallID, callID),
	}
}

// StatusAttrs tags a span outcome.
func StatusAttrs(status string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(AttrStatus, status)}
}

// ErrorAttrs tags a failed span.
func ErrorAttrs(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(AttrError, true),
		attribute.String("error.message", err.Error()),
	}
}

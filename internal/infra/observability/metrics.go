// Package observability wires OpenTelemetry metrics and traces for the
// research pipeline.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"scholar/internal/shared/config"
	"scholar/internal/shared/logging"
)

const meterName = "scholar"

// MetricsCollector records pipeline metrics. A nil or disabled collector
// accepts every call and records nothing.
type MetricsCollector struct {
	provider *sdkmetric.MeterProvider
	registry *promclient.Registry

	toolExecutions   metric.Int64Counter
	toolDuration     metric.Float64Histogram
	downloads        metric.Int64Counter
	downloadBytes    metric.Int64Counter
	searchRequests   metric.Int64Counter
	sessionsActive   metric.Int64UpDownCounter
	sessionCost      metric.Float64Counter
	prometheusServer *http.Server
	logger           logging.Logger
}

// NewMetricsCollector builds a collector backed by a private Prometheus
// registry so several collectors can coexist in one process.
func NewMetricsCollector(cfg config.MetricsConfig, logger logging.Logger) (*MetricsCollector, error) {
	logger = logging.OrNop(logger)
	if !cfg.Enabled {
		return &MetricsCollector{logger: logger}, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	m := &MetricsCollector{provider: provider, registry: registry, logger: logger}

	if m.toolExecutions, err = meter.Int64Counter(
		"scholar.tool.executions.total",
		metric.WithDescription("Total number of tool calls executed"),
		metric.WithUnit("{execution}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool_executions counter: %w", err)
	}
	if m.toolDuration, err = meter.Float64Histogram(
		"scholar.tool.duration",
		metric.WithDescription("Tool execution duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool_duration histogram: %w", err)
	}
	if m.downloads, err = meter.Int64Counter(
		"scholar.documents.downloads.total",
		metric.WithDescription("Document download outcomes"),
		metric.WithUnit("{document}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create downloads counter: %w", err)
	}
	if m.downloadBytes, err = meter.Int64Counter(
		"scholar.documents.bytes",
		metric.WithDescription("Bytes written by successful downloads"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create download_bytes counter: %w", err)
	}
	if m.searchRequests, err = meter.Int64Counter(
		"scholar.search.requests.total",
		metric.WithDescription("Search requests by provider"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create search_requests counter: %w", err)
	}
	if m.sessionsActive, err = meter.Int64UpDownCounter(
		"scholar.sessions.active",
		metric.WithDescription("Number of sessions being driven"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sessions_active gauge: %w", err)
	}
	if m.sessionCost, err = meter.Float64Counter(
		"scholar.cost.total",
		metric.WithDescription("Reported agent cost"),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cost counter: %w", err)
	}
	return m, nil
}

// Enabled reports whether the collector records anything.
func (m *MetricsCollector) Enabled() bool {
	return m != nil && m.provider != nil
}

// Handler serves the Prometheus exposition format.
func (m *MetricsCollector) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartPrometheusServer serves /metrics on listen until Shutdown.
func (m *MetricsCollector) StartPrometheusServer(listen string) error {
	if !m.Enabled() || listen == "" {
		return nil
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.prometheusServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		m.logger.Info("Prometheus metrics server listening on %s", ln.Addr())
		if err := m.prometheusServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Prometheus server error: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the scrape server and flushes the meter provider.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var errs []error
	if m.prometheusServer != nil {
		errs = append(errs, m.prometheusServer.Shutdown(ctx))
	}
	if m.provider != nil {
		errs = append(errs, m.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// RecordToolExecution records one dispatched tool call.
func (m *MetricsCollector) RecordToolExecution(ctx context.Context, toolName, status string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("tool_name", toolName),
		attribute.String("status", status),
	}
	m.toolExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("tool_name", toolName)))
}

// RecordDownload records one document outcome.
func (m *MetricsCollector) RecordDownload(ctx context.Context, status string, bytes int64) {
	if !m.Enabled() {
		return
	}
	m.downloads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	if bytes > 0 {
		m.downloadBytes.Add(ctx, bytes)
	}
}

// RecordSearch records one gateway query.
func (m *MetricsCollector) RecordSearch(ctx context.Context, provider, status string) {
	if !m.Enabled() {
		return
	}
	m.searchRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RecordCost adds the agent-reported cost of a finished session.
func (m *MetricsCollector) RecordCost(ctx context.Context, costUSD float64) {
	if !m.Enabled() || costUSD <= 0 {
		return
	}
	m.sessionCost.Add(ctx, costUSD)
}

// IncrementActiveSessions increments the active sessions counter.
func (m *MetricsCollector) IncrementActiveSessions(ctx context.Context) {
	if !m.Enabled() {
		return
	}
	m.sessionsActive.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *MetricsCollector) DecrementActiveSessions(ctx context.Context) {
	if !m.Enabled() {
		return
	}
	m.sessionsActive.Add(ctx, -1)
}

// Package di assembles the research pipeline from configuration.
package di

import (
	"context"
	"errors"

	"scholar/internal/app/dispatch"
	"scholar/internal/app/pipeline"
	"scholar/internal/infra/observability"
	"scholar/internal/infra/search"
	"scholar/internal/infra/session"
	"scholar/internal/shared/config"
)

// Container holds all application dependencies.
type Container struct {
	Config   config.Config
	Sessions *session.Store
	Search   *search.Gateway
	Engine   *dispatch.Engine
	Pipeline *pipeline.Service
	Metrics  *observability.MetricsCollector
	Tracer   *observability.TracerProvider
}

// Cleanup flushes telemetry and stops the metrics endpoint.
func (c *Container) Cleanup(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return errors.Join(c.Metrics.Shutdown(ctx), c.Tracer.Shutdown(ctx))
}

// BuildContainer builds the container for cfg.
func BuildContainer(cfg config.Config, opts ...Option) (*Container, error) {
	return newContainerBuilder(cfg, opts...).Build()
}

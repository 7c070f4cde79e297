// Package pipeline starts research sessions and hands them to the dispatch
// engine.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"scholar/internal/app/dispatch"
	"scholar/internal/domain/research"
	serrors "scholar/internal/shared/errors"
	"scholar/internal/shared/logging"
)

// SessionCreator creates session folders and their metadata record.
type SessionCreator interface {
	Create(topic string) (research.Handle, error)
	WriteMetadata(h research.Handle, doc any) error
}

// Runner drives one session from an event stream.
type Runner interface {
	Run(ctx context.Context, h research.Handle, stream dispatch.EventStream, opts ...dispatch.RunOption) (dispatch.Outcome, error)
}

// Limits are the process-wide ceilings merged into each request budget.
type Limits struct {
	MaxTurns   int
	MaxCostUSD float64
}

// Service starts sessions.
type Service struct {
	sessions SessionCreator
	runner   Runner
	limits   Limits
	now      func() time.Time
	logger   logging.Logger
}

// NewService wires the session store and engine together.
func NewService(sessions SessionCreator, runner Runner, limits Limits, logger logging.Logger) *Service {
	return &Service{
		sessions: sessions,
		runner:   runner,
		limits:   limits,
		now:      time.Now,
		logger:   logging.OrNop(logger),
	}
}

// Prepare validates req and creates its session with metadata.json written.
func (s *Service) Prepare(req *research.Request) (research.Handle, error) {
	if err := req.Normalize(); err != nil {
		return research.Handle{}, &serrors.ValidationError{Field: "request", Message: err.Error()}
	}
	h, err := s.sessions.Create(req.Topic)
	if err != nil {
		return research.Handle{}, fmt.Errorf("create session: %w", err)
	}
	if err := s.sessions.WriteMetadata(h, req.Metadata(s.now())); err != nil {
		return research.Handle{}, fmt.Errorf("write metadata: %w", err)
	}
	s.logger.Info("Created session %s for %q", h.ID, req.Topic)
	return h, nil
}

// Start prepares a session for req and runs it to completion against stream.
func (s *Service) Start(ctx context.Context, req research.Request, stream dispatch.EventStream) (dispatch.Outcome, error) {
	h, err := s.Prepare(&req)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	budget := req.Budget(s.limits.MaxTurns, s.limits.MaxCostUSD)
	return s.runner.Run(ctx, h, stream, dispatch.RunBudget(budget))
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"scholar/internal/domain/research"
	"scholar/internal/infra/observability"
	"scholar/internal/infra/search"
	"scholar/internal/infra/session"
	serrors "scholar/internal/shared/errors"
	"scholar/internal/shared/logging"
	"scholar/internal/shared/textutil"
	id "scholar/internal/shared/utils/id"
)

// ErrStreamEnded reports a stream that closed before its terminal event.
var ErrStreamEnded = errors.New("event stream ended without a result")

// Searcher runs queries against a named provider.
type Searcher interface {
	Search(ctx context.Context, provider, query string, maxResults int, filters research.SearchFilters) ([]research.SearchResult, error)
}

// DocumentFetcher downloads documents into a session.
type DocumentFetcher interface {
	FetchAll(ctx context.Context, h research.Handle, urls []string) research.DownloadReport
}

// TextExtractor reads stored documents.
type TextExtractor interface {
	ExtractText(h research.Handle, filename string, maxPages int) (research.ExtractedText, error)
}

// NoteStore persists and filters notes.
type NoteStore interface {
	SaveNote(h research.Handle, noteType, title, content, source string, tags []string) (research.Note, error)
	ReadNotes(h research.Handle, typeFilter string, tags []string) ([]research.Note, error)
}

// ReportWriter renders and stores the final report.
type ReportWriter interface {
	WriteReport(h research.Handle, input research.ReportInput) (string, string, error)
}

// CompletionWriter persists the completion record.
type CompletionWriter interface {
	WriteCompletion(h research.Handle, doc any) error
}

// Deps are the pipeline components the engine routes to.
type Deps struct {
	Search    Searcher
	Fetcher   DocumentFetcher
	Extractor TextExtractor
	Notes     NoteStore
	Reports   ReportWriter
	Sessions  CompletionWriter
}

// Config tunes routing and budgets.
type Config struct {
	Budget      research.Budget
	WebProvider string
	MaxResults  int
}

// Failure names one item that did not succeed, for user-facing summaries.
type Failure struct {
	Op     string `json:"op"`
	CallID string `json:"call_id,omitempty"`
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// Outcome is the final record of one run.
type Outcome struct {
	RunID              string          `json:"run_id"`
	SessionID          string          `json:"session_id"`
	SessionPath        string          `json:"session_path"`
	ReportPath         string          `json:"report_path,omitempty"`
	Status             research.Status `json:"status"`
	DurationSeconds    float64         `json:"duration_seconds"`
	APIDurationSeconds float64         `json:"api_duration_seconds,omitempty"`
	CostUSD            *float64        `json:"cost_usd,omitempty"`
	NumTurns           int             `json:"num_turns"`
	Stats              research.Stats  `json:"stats"`
	ToolCalls          []string        `json:"tool_calls"`
	Failures           []Failure       `json:"failures,omitempty"`
	BudgetExceeded     string          `json:"budget_exceeded,omitempty"`
	Error              string          `json:"error,omitempty"`
}

// Engine executes tool calls for one session at a time per Run call. Runs
// share no mutable state, so one Engine may drive many sessions concurrently.
type Engine struct {
	deps     Deps
	cfg      Config
	observer Observer
	sink     ResultSink
	metrics  *observability.MetricsCollector
	tracer   *observability.TracerProvider
	now      func() time.Time
	logger   logging.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithObserver registers a progress observer.
func WithObserver(observer Observer) Option {
	return func(e *Engine) { e.observer = observer }
}

// WithResultSink forwards every tool result to sink.
func WithResultSink(sink ResultSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithMetrics records tool metrics.
func WithMetrics(metrics *observability.MetricsCollector) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithTracer opens one span per run and per tool call.
func WithTracer(tracer *observability.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(logger) }
}

// NewEngine validates deps and builds an engine.
func NewEngine(deps Deps, cfg Config, opts ...Option) (*Engine, error) {
	switch {
	case deps.Search == nil:
		return nil, &serrors.ConfigurationError{Setting: "search", Message: "dispatch: search gateway is required"}
	case deps.Fetcher == nil:
		return nil, &serrors.ConfigurationError{Setting: "fetcher", Message: "dispatch: fetcher is required"}
	case deps.Extractor == nil:
		return nil, &serrors.ConfigurationError{Setting: "extractor", Message: "dispatch: extractor is required"}
	case deps.Notes == nil:
		return nil, &serrors.ConfigurationError{Setting: "notes", Message: "dispatch: note repository is required"}
	case deps.Reports == nil:
		return nil, &serrors.ConfigurationError{Setting: "reports", Message: "dispatch: report synthesizer is required"}
	case deps.Sessions == nil:
		return nil, &serrors.ConfigurationError{Setting: "sessions", Message: "dispatch: session store is required"}
	}
	if cfg.WebProvider == "" {
		cfg.WebProvider = search.ProviderTavily
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	e := &Engine{
		deps:   deps,
		cfg:    cfg,
		now:    time.Now,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RunOption adjusts a single Run.
type RunOption func(*run)

// RunBudget overrides the engine budget for one run.
func RunBudget(budget research.Budget) RunOption {
	return func(r *run) { r.budget = budget }
}

// run holds the mutable state of one Run.
type run struct {
	handle     research.Handle
	budget     research.Budget
	runID      string
	started    time.Time
	stats      research.Stats
	usage      Usage
	toolCalls  []string
	failures   []Failure
	reportPath string
	exceeded   string
	progress   *progressTracker
}

// Run consumes stream until its terminal event and persists the completion
// record. Tool failures are reported back to the stream and never end the
// run; only a stream failure yields StatusError and a non-nil error.
func (e *Engine) Run(ctx context.Context, h research.Handle, stream EventStream, opts ...RunOption) (Outcome, error) {
	if h.IsZero() {
		return Outcome{}, &serrors.ValidationError{Field: "session", Message: "handle is empty"}
	}
	if stream == nil {
		return Outcome{}, &serrors.ValidationError{Field: "stream", Message: "is required"}
	}

	r := &run{
		handle:   h,
		budget:   e.cfg.Budget,
		runID:    id.NewRunID(),
		started:  e.now(),
		progress: newProgressTracker(h.ID, e.now, e.observer),
	}
	for _, opt := range opts {
		opt(r)
	}

	ctx = session.WithActive(ctx, h)
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanSessionRun, observability.SessionAttrs(h.ID, r.runID)...)
	defer span.End()
	e.metrics.IncrementActiveSessions(ctx)
	defer e.metrics.DecrementActiveSessions(ctx)

	e.logger.Info("Run %s started for session %s", r.runID, h.ID)
	r.progress.logf("Session folder: %s", h.Root)
	r.progress.publish()

	for {
		event, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			err = ErrStreamEnded
		}
		if err != nil {
			span.SetAttributes(observability.ErrorAttrs(err)...)
			return e.fail(r, err)
		}

		switch event.Kind {
		case EventText:
			e.narrate(r, event.Text)
		case EventToolCall:
			if event.ToolCall != nil {
				e.handleToolCall(ctx, r, *event.ToolCall)
			}
		case EventToolResult:
			if event.ToolResult != nil {
				e.logger.Debug("Ignoring echoed result for call %s", event.ToolResult.CallID)
			}
		case EventUsage:
			if event.Usage != nil {
				r.usage = *event.Usage
			}
		case EventTerminal:
			terminal := Terminal{}
			if event.Terminal != nil {
				terminal = *event.Terminal
			}
			span.SetAttributes(observability.StatusAttrs(string(research.StatusCompleted))...)
			return e.complete(ctx, r, terminal)
		default:
			e.logger.Warn("Unknown event kind %q", event.Kind)
		}
		r.progress.publish()
	}
}

func (e *Engine) narrate(r *run, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	r.progress.logf("Agent: %s", textutil.Ellipsize(text, 100))
}

func (e *Engine) handleToolCall(ctx context.Context, r *run, call ToolCall) {
	if call.ID == "" {
		call.ID = id.NewCallID()
	}
	op, decodeErr := DecodeOp(call)
	if op.Kind == OpUnknown {
		e.logger.Info("Unrecognized tool %q; not executed", call.Name)
		r.progress.logf("Tool %s", op.Name)
		return
	}
	r.toolCalls = append(r.toolCalls, op.Name)

	start := e.now()
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanToolExecute, observability.ToolAttrs(op.Name, call.ID)...)
	defer span.End()

	var (
		result ToolResult
		status string
	)
	switch {
	case decodeErr != nil:
		result = errorResult(call.ID, op.Name, decodeErr)
		status = "invalid"
	default:
		if refusal := e.checkBudget(r, op.Kind); refusal != nil {
			if r.exceeded == "" {
				r.exceeded = refusal.Error()
			}
			e.logger.Warn("Refusing %s: %v", op.Name, refusal)
			r.progress.logf("Budget exceeded, refused %s", op.Name)
			result = errorResult(call.ID, op.Name, refusal)
			status = "refused"
			break
		}
		result = e.execute(ctx, r, call.ID, op)
		status = "ok"
		if result.IsError {
			status = "error"
		}
	}

	r.progress.setStats(r.stats)
	if result.Error != nil {
		span.SetAttributes(observability.ErrorAttrs(result.Error)...)
	}
	span.SetAttributes(observability.StatusAttrs(status)...)
	e.metrics.RecordToolExecution(ctx, op.Name, status, e.now().Sub(start))

	if e.sink != nil {
		if err := e.sink.Deliver(ctx, result); err != nil {
			e.logger.Warn("Delivering result for %s failed: %v", call.ID, err)
		}
	}
}

func (e *Engine) checkBudget(r *run, kind OpKind) error {
	b := r.budget
	if b.MaxTurns > 0 && r.usage.NumTurns >= b.MaxTurns {
		return &serrors.BudgetExceededError{Limit: "max_turns", Used: float64(r.usage.NumTurns), Max: float64(b.MaxTurns)}
	}
	if b.MaxCostUSD > 0 && r.usage.CostUSD != nil && *r.usage.CostUSD >= b.MaxCostUSD {
		return &serrors.BudgetExceededError{Limit: "max_cost_usd", Used: *r.usage.CostUSD, Max: b.MaxCostUSD}
	}
	if kind.IsSearch() && b.MaxSearches > 0 && r.stats.Searches >= b.MaxSearches {
		return &serrors.BudgetExceededError{Limit: "max_searches", Used: float64(r.stats.Searches), Max: float64(b.MaxSearches)}
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, r *run, callID string, op Op) ToolResult {
	h := r.handle
	switch args := op.Args.(type) {
	case *WebSearchArgs:
		r.stats.Searches++
		query := strings.TrimSpace(args.Query)
		r.progress.current.CurrentAction = fmt.Sprintf("Searching: %s...", textutil.Ellipsize(query, 50))
		r.progress.logf("Web search: %q", textutil.Ellipsize(query, 50))
		provider := args.Provider
		if provider == "" {
			provider = e.cfg.WebProvider
		}
		results, err := e.deps.Search.Search(ctx, provider, query, e.maxResults(args.MaxResults), research.SearchFilters{Academic: true})
		e.metrics.RecordSearch(ctx, provider, outcomeLabel(err))
		if err != nil {
			return e.searchFailure(r, callID, op.Name, query, err)
		}
		return ToolResult{CallID: callID, Name: op.Name, Content: renderWebSearch(query, results)}

	case *ArxivSearchArgs:
		r.stats.Searches++
		query := strings.TrimSpace(args.Query)
		r.progress.current.CurrentAction = fmt.Sprintf("Searching arXiv: %s...", textutil.Ellipsize(query, 50))
		r.progress.logf("ArXiv search: %q", textutil.Ellipsize(query, 50))
		filters := research.SearchFilters{Category: args.Category, SortBy: strings.ToLower(args.SortBy)}
		results, err := e.deps.Search.Search(ctx, search.ProviderArxiv, query, e.maxResults(args.MaxResults), filters)
		e.metrics.RecordSearch(ctx, search.ProviderArxiv, outcomeLabel(err))
		if err != nil {
			return e.searchFailure(r, callID, op.Name, query, err)
		}
		return ToolResult{CallID: callID, Name: op.Name, Content: renderArxivSearch(query, results)}

	case *DownloadArgs:
		r.stats.Downloads += len(args.URLs)
		r.progress.current.CurrentAction = fmt.Sprintf("Downloading %d PDFs...", len(args.URLs))
		r.progress.logf("Downloading %d PDFs", len(args.URLs))
		report := e.deps.Fetcher.FetchAll(ctx, h, args.URLs)
		for _, o := range report.Outcomes {
			e.metrics.RecordDownload(ctx, string(o.Status), o.Bytes)
			if o.Status == research.DownloadFailed {
				item := o.Filename
				if item == "" {
					item = o.URL
				}
				r.failures = append(r.failures, Failure{Op: op.Name, CallID: callID, Item: item, Reason: o.Reason})
			}
		}
		e.logger.Info("Downloads: %d ok, %d failed, %d skipped", report.Successful, report.Failed, report.Skipped)
		return ToolResult{
			CallID:  callID,
			Name:    op.Name,
			Content: renderDownloadReport(report, h.PDFDir()),
			IsError: report.Total > 0 && report.Failed == report.Total,
		}

	case *ReadDocumentArgs:
		r.progress.current.CurrentAction = "Reading: " + args.Filename
		r.progress.logf("Reading PDF: %s", args.Filename)
		doc, err := e.deps.Extractor.ExtractText(h, args.Filename, args.MaxPages)
		if err != nil {
			r.failures = append(r.failures, Failure{Op: op.Name, CallID: callID, Item: args.Filename, Reason: serrors.Reason(err)})
			if serrors.IsNotFound(err) {
				return errorResult(callID, op.Name, fmt.Errorf("'%s' not found", args.Filename))
			}
			return errorResult(callID, op.Name, fmt.Errorf("reading '%s': %w", args.Filename, err))
		}
		if !doc.HasText() {
			r.failures = append(r.failures, Failure{Op: op.Name, CallID: callID, Item: doc.Filename, Reason: doc.Warning})
			return ToolResult{CallID: callID, Name: op.Name, Content: renderExtracted(doc)}
		}
		r.stats.PDFsRead++
		return ToolResult{CallID: callID, Name: op.Name, Content: renderExtracted(doc)}

	case *SaveNoteArgs:
		r.progress.current.CurrentAction = "Saving note: " + textutil.Ellipsize(args.Title, 40)
		r.progress.logf("Note [%s]: %s", args.NoteType, textutil.Ellipsize(args.Title, 40))
		note, err := e.deps.Notes.SaveNote(h, args.NoteType, args.Title, args.Content, args.Source, args.Tags)
		if err != nil {
			return errorResult(callID, op.Name, fmt.Errorf("saving note: %w", err))
		}
		r.stats.NotesSaved++
		return ToolResult{CallID: callID, Name: op.Name, Content: renderSavedNote(note)}

	case *ReadNotesArgs:
		r.progress.current.CurrentAction = "Gathering all findings..."
		r.progress.logf("Reading notes for synthesis")
		found, err := e.deps.Notes.ReadNotes(h, args.NoteType, args.Tags)
		if err != nil {
			return errorResult(callID, op.Name, fmt.Errorf("reading notes: %w", err))
		}
		return ToolResult{CallID: callID, Name: op.Name, Content: renderNotes(found, args.NoteType, args.Tags)}

	case *WriteReportArgs:
		r.progress.current.CurrentAction = "Generating final report..."
		r.progress.logf("Generating final report")
		path, content, err := e.deps.Reports.WriteReport(h, args.ReportInput())
		if err != nil {
			return errorResult(callID, op.Name, fmt.Errorf("writing report: %w", err))
		}
		r.stats.ReportGenerated = true
		r.reportPath = path
		return ToolResult{CallID: callID, Name: op.Name, Content: renderReportSaved(path, content)}
	}
	return errorResult(callID, op.Name, fmt.Errorf("no handler for %s", op.Name))
}

func (e *Engine) searchFailure(r *run, callID, name, query string, err error) ToolResult {
	r.failures = append(r.failures, Failure{Op: name, CallID: callID, Item: query, Reason: serrors.Reason(err)})
	if serrors.IsNotConfigured(err) {
		return errorResult(callID, name, fmt.Errorf("search not configured: %w. Set TAVILY_API_KEY or use the duckduckgo provider", err))
	}
	return errorResult(callID, name, fmt.Errorf("search error: %w", err))
}

func (e *Engine) maxResults(requested int) int {
	if requested > 0 {
		return requested
	}
	return e.cfg.MaxResults
}

func (e *Engine) complete(ctx context.Context, r *run, terminal Terminal) (Outcome, error) {
	finished := e.now()
	outcome := e.outcome(r, research.StatusCompleted, finished)
	outcome.APIDurationSeconds = terminal.APIDuration.Seconds()
	// Fields missing from the result event fall back to the last usage report.
	outcome.CostUSD = terminal.CostUSD
	if outcome.CostUSD == nil {
		outcome.CostUSD = r.usage.CostUSD
	}
	outcome.NumTurns = terminal.NumTurns
	if outcome.NumTurns == 0 {
		outcome.NumTurns = r.usage.NumTurns
	}

	r.progress.current.Status = research.StatusCompleted
	r.progress.current.Phase = "Research complete!"
	r.progress.current.CurrentAction = ""
	r.progress.logf("Research completed in %.1fs", outcome.DurationSeconds)
	if outcome.CostUSD != nil {
		r.progress.logf("Cost: $%.4f", *outcome.CostUSD)
		e.metrics.RecordCost(ctx, *outcome.CostUSD)
	} else {
		r.progress.logf("Cost: N/A")
	}

	err := e.persist(r, outcome, finished)
	r.progress.publish()
	e.logger.Info("Run %s completed: %d searches, %d downloads, %d read, %d notes, report=%t",
		r.runID, r.stats.Searches, r.stats.Downloads, r.stats.PDFsRead, r.stats.NotesSaved, r.stats.ReportGenerated)
	return outcome, err
}

func (e *Engine) fail(r *run, cause error) (Outcome, error) {
	finished := e.now()
	outcome := e.outcome(r, research.StatusError, finished)
	if r.usage.NumTurns > 0 {
		outcome.NumTurns = r.usage.NumTurns
	}
	outcome.CostUSD = r.usage.CostUSD
	outcome.Error = cause.Error()

	r.progress.current.Status = research.StatusError
	r.progress.current.Error = cause.Error()
	r.progress.logf("Error: %v", cause)

	persistErr := e.persist(r, outcome, finished)
	r.progress.publish()
	e.logger.Error("Run %s failed: %v", r.runID, cause)
	return outcome, errors.Join(fmt.Errorf("event stream: %w", cause), persistErr)
}

func (e *Engine) outcome(r *run, status research.Status, finished time.Time) Outcome {
	r.progress.setStats(r.stats)
	return Outcome{
		RunID:           r.runID,
		SessionID:       r.handle.ID,
		SessionPath:     r.handle.Root,
		ReportPath:      r.reportPath,
		Status:          status,
		DurationSeconds: finished.Sub(r.started).Seconds(),
		Stats:           r.stats,
		ToolCalls:       append([]string{}, r.toolCalls...),
		Failures:        r.failures,
		BudgetExceeded:  r.exceeded,
	}
}

func (e *Engine) persist(r *run, outcome Outcome, finished time.Time) error {
	record := research.Completion{
		Status:             outcome.Status,
		CompletedAt:        finished,
		DurationSeconds:    outcome.DurationSeconds,
		APIDurationSeconds: outcome.APIDurationSeconds,
		CostUSD:            outcome.CostUSD,
		NumTurns:           outcome.NumTurns,
		Stats:              outcome.Stats,
		BudgetExceeded:     outcome.BudgetExceeded,
		Error:              outcome.Error,
		RunID:              r.runID,
	}
	if err := e.deps.Sessions.WriteCompletion(r.handle, record); err != nil {
		e.logger.Error("Persisting completion for %s failed: %v", r.handle.ID, err)
		return fmt.Errorf("persist completion: %w", err)
	}
	return nil
}

func errorResult(callID, name string, err error) ToolResult {
	return ToolResult{
		CallID:  callID,
		Name:    name,
		Content: "Error: " + err.Error(),
		IsError: true,
		Error:   err,
	}
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

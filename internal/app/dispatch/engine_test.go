package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholar/internal/domain/research"
	"scholar/internal/infra/extract"
	"scholar/internal/infra/fetcher"
	"scholar/internal/infra/notes"
	"scholar/internal/infra/report"
	"scholar/internal/infra/search"
	"scholar/internal/infra/session"
	serrors "scholar/internal/shared/errors"
)

type sliceStream struct {
	events []Event
	err    error
}

func (s *sliceStream) Recv(ctx context.Context) (Event, error) {
	if len(s.events) == 0 {
		if s.err != nil {
			return Event{}, s.err
		}
		return Event{}, io.EOF
	}
	event := s.events[0]
	s.events = s.events[1:]
	return event, nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []string
	filters []research.SearchFilters
	results []research.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, provider, query string, _ int, filters research.SearchFilters) ([]research.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, provider+":"+query)
	f.filters = append(f.filters, filters)
	return f.results, f.err
}

func toolCall(id, name string, input map[string]any) Event {
	return Event{Kind: EventToolCall, ToolCall: &ToolCall{ID: id, Name: name, Input: input}}
}

func terminal(turns int, cost float64) Event {
	return Event{Kind: EventTerminal, Terminal: &Terminal{APIDuration: 2 * time.Second, CostUSD: &cost, NumTurns: turns}}
}

type harness struct {
	mu       sync.Mutex
	store    *session.Store
	handle   research.Handle
	searcher *fakeSearcher
	server   *httptest.Server
	results  []ToolResult
	progress []Progress
}

func newHarness(t *testing.T, cfg Config, extraOpts ...Option) (*harness, *Engine) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pdf/1706.03762.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 attention is all you need"))
	})
	mux.HandleFunc("/error.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>Access denied</title></head><body>nope</body></html>"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	h := &harness{
		store:    session.New(t.TempDir()),
		searcher: &fakeSearcher{},
		server:   server,
	}
	handle, err := h.store.Create("attention mechanisms")
	require.NoError(t, err)
	h.handle = handle

	backend := extract.PageExtractorFunc(func(data []byte, limit int) (extract.Pages, error) {
		if strings.Contains(string(data), "scanned") {
			return extract.Pages{Total: 2, Pages: []extract.PageText{{Number: 1}, {Number: 2}}}, nil
		}
		return extract.Pages{Total: 3, Pages: []extract.PageText{{Number: 1, Text: "Self-attention replaces recurrence."}}}, nil
	})

	client := server.Client()
	client.Transport.(*http.Transport).DisableKeepAlives = true

	opts := append([]Option{
		WithResultSink(ResultSinkFunc(func(_ context.Context, r ToolResult) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.results = append(h.results, r)
			return nil
		})),
		WithObserver(func(p Progress) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.progress = append(h.progress, p)
		}),
	}, extraOpts...)

	engine, err := NewEngine(Deps{
		Search:    h.searcher,
		Fetcher:   fetcher.New(fetcher.Config{}, fetcher.WithHTTPClient(client)),
		Extractor: extract.New(extract.WithBackend(backend)),
		Notes:     notes.New(),
		Reports:   report.New(),
		Sessions:  h.store,
	}, cfg, opts...)
	require.NoError(t, err)
	return h, engine
}

func (h *harness) completion(t *testing.T) research.Completion {
	t.Helper()
	var record research.Completion
	found, err := h.store.ReadCompletion(h.handle, &record)
	require.NoError(t, err)
	require.True(t, found)
	return record
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := NewEngine(Deps{}, Config{})
	require.Error(t, err)
	assert.True(t, serrors.IsNotConfigured(err))
}

func TestRunFullSession(t *testing.T) {
	h, engine := newHarness(t, Config{})
	h.searcher.results = []research.SearchResult{
		{Title: "Attention Is All You Need", URL: h.server.URL + "/pdf/1706.03762.pdf", IsDocument: true, PDFURL: h.server.URL + "/pdf/1706.03762.pdf"},
	}

	stream := &sliceStream{events: []Event{
		{Kind: EventText, Text: "Starting with arXiv."},
		toolCall("c1", "mcp__research__arxiv_search", map[string]any{"query": "attention", "category": "cs.CL"}),
		toolCall("c2", "mcp__research__download_pdfs", map[string]any{"urls": []any{
			h.server.URL + "/pdf/1706.03762.pdf",
			h.server.URL + "/error.pdf",
		}}),
		toolCall("c3", "mcp__research__read_pdf", map[string]any{"filename": "1706.03762"}),
		toolCall("c4", "mcp__research__save_note", map[string]any{"note_type": "finding", "title": "Attention", "content": "Replaces recurrence", "tags": []any{"transformers"}}),
		toolCall("c5", "mcp__research__read_notes", map[string]any{"note_type": "all"}),
		toolCall("c6", "mcp__research__write_report", map[string]any{"title": "Attention", "executive_summary": "S", "findings": []any{"A", "B"}}),
		toolCall("c7", "mcp__research__open_browser", map[string]any{}),
		terminal(12, 0.42),
	}}

	outcome, err := engine.Run(context.Background(), h.handle, stream)
	require.NoError(t, err)

	assert.Equal(t, research.StatusCompleted, outcome.Status)
	assert.Equal(t, research.Stats{Searches: 1, Downloads: 2, PDFsRead: 1, NotesSaved: 1, ReportGenerated: true}, outcome.Stats)
	assert.Equal(t, h.handle.ReportPath(), outcome.ReportPath)
	assert.Equal(t, 12, outcome.NumTurns)
	assert.InDelta(t, 2.0, outcome.APIDurationSeconds, 1e-9)
	assert.Equal(t, []string{"arxiv_search", "download_pdfs", "read_pdf", "save_note", "read_notes", "write_report"}, outcome.ToolCalls)

	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "error.pdf", outcome.Failures[0].Item)
	assert.Contains(t, outcome.Failures[0].Reason, "not a PDF")

	assert.Equal(t, []string{"arxiv:attention"}, h.searcher.calls)
	assert.Equal(t, "cs.CL", h.searcher.filters[0].Category)

	require.Len(t, h.results, 6)
	assert.Contains(t, h.results[0].Content, "Found 1 ArXiv papers for: attention")
	assert.Contains(t, h.results[1].Content, "Successful: 1, Failed: 1, Skipped: 0")
	assert.Contains(t, h.results[2].Content, "PDF: 1706.03762.pdf\nPages: 1/3")
	assert.Contains(t, h.results[3].Content, "Note saved:")
	assert.Contains(t, h.results[4].Content, "Found 1 notes:")
	assert.Contains(t, h.results[5].Content, "# Research Report: Attention")

	_, err = os.Stat(filepath.Join(h.handle.PDFDir(), "1706.03762.pdf"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(h.handle.PDFDir(), "error.pdf"))
	assert.True(t, os.IsNotExist(err))

	record := h.completion(t)
	assert.Equal(t, research.StatusCompleted, record.Status)
	assert.Equal(t, outcome.Stats, record.Stats)
	require.NotNil(t, record.CostUSD)
	assert.InDelta(t, 0.42, *record.CostUSD, 1e-9)
	assert.Equal(t, outcome.RunID, record.RunID)

	require.NotEmpty(t, h.progress)
	last := h.progress[len(h.progress)-1]
	assert.Equal(t, research.StatusCompleted, last.Status)
	assert.Equal(t, "Research complete!", last.Phase)
	assert.True(t, last.ReportGenerated)
}

func TestToolFailuresDoNotEndSession(t *testing.T) {
	h, engine := newHarness(t, Config{})
	h.searcher.err = &serrors.ConfigurationError{Setting: "tavily_api_key"}

	stream := &sliceStream{events: []Event{
		toolCall("c1", "web_search", map[string]any{"query": "attention"}),
		toolCall("c2", "read_pdf", map[string]any{"filename": "missing.pdf"}),
		toolCall("c3", "save_note", map[string]any{"note_type": "rumor", "title": "t", "content": "c"}),
		terminal(3, 0.01),
	}}

	outcome, err := engine.Run(context.Background(), h.handle, stream)
	require.NoError(t, err)
	assert.Equal(t, research.StatusCompleted, outcome.Status)

	require.Len(t, h.results, 3)
	for _, r := range h.results {
		assert.True(t, r.IsError, r.Name)
	}
	assert.Contains(t, h.results[0].Content, "TAVILY_API_KEY")
	assert.Contains(t, h.results[1].Content, "not found")
	assert.Equal(t, 1, outcome.Stats.Searches)
	assert.Equal(t, 0, outcome.Stats.PDFsRead)
	assert.Equal(t, 0, outcome.Stats.NotesSaved)
	assert.Len(t, outcome.Failures, 2)
}

func TestUnreadableDocumentIsReportedNotFailed(t *testing.T) {
	h, engine := newHarness(t, Config{})
	require.NoError(t, os.WriteFile(h.handle.DocumentPath("scan.pdf"), []byte("%PDF scanned"), 0o644))

	outcome, err := engine.Run(context.Background(), h.handle, &sliceStream{events: []Event{
		toolCall("c1", "read_pdf", map[string]any{"filename": "scan.pdf"}),
		terminal(1, 0),
	}})
	require.NoError(t, err)

	require.Len(t, h.results, 1)
	assert.False(t, h.results[0].IsError)
	assert.Contains(t, h.results[0].Content, "Warning: no text extracted from scan.pdf")
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "scan.pdf", outcome.Failures[0].Item)
}

func TestSearchBudgetRefusesFurtherSearches(t *testing.T) {
	h, engine := newHarness(t, Config{Budget: research.Budget{MaxSearches: 1}})

	outcome, err := engine.Run(context.Background(), h.handle, &sliceStream{events: []Event{
		toolCall("c1", "web_search", map[string]any{"query": "one"}),
		toolCall("c2", "arxiv_search", map[string]any{"query": "two"}),
		toolCall("c3", "save_note", map[string]any{"note_type": "insight", "title": "t", "content": "c"}),
		terminal(3, 0.1),
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Stats.Searches)
	assert.Equal(t, 1, outcome.Stats.NotesSaved)
	assert.Len(t, h.searcher.calls, 1)
	assert.True(t, h.results[1].IsError)
	var budgetErr *serrors.BudgetExceededError
	require.ErrorAs(t, h.results[1].Error, &budgetErr)
	assert.Equal(t, "max_searches", budgetErr.Limit)
	assert.NotEmpty(t, outcome.BudgetExceeded)
	assert.Equal(t, outcome.BudgetExceeded, h.completion(t).BudgetExceeded)
}

func TestCostBudgetRefusesEveryTool(t *testing.T) {
	h, engine := newHarness(t, Config{Budget: research.Budget{MaxCostUSD: 1.0}})
	spent := 1.5

	outcome, err := engine.Run(context.Background(), h.handle, &sliceStream{events: []Event{
		toolCall("c1", "save_note", map[string]any{"note_type": "finding", "title": "before", "content": "c"}),
		{Kind: EventUsage, Usage: &Usage{NumTurns: 4, CostUSD: &spent}},
		toolCall("c2", "save_note", map[string]any{"note_type": "finding", "title": "after", "content": "c"}),
		terminal(5, 1.6),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Stats.NotesSaved)
	assert.Contains(t, outcome.BudgetExceeded, "max_cost_usd")

	saved, err := notes.New().ReadNotes(h.handle, "all", nil)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "before", saved[0].Title)
}

func TestCompletionFallsBackToObservedUsage(t *testing.T) {
	h, engine := newHarness(t, Config{})
	spent := 0.42

	outcome, err := engine.Run(context.Background(), h.handle, &sliceStream{events: []Event{
		{Kind: EventUsage, Usage: &Usage{NumTurns: 7, CostUSD: &spent}},
		{Kind: EventTerminal, Terminal: &Terminal{}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 7, outcome.NumTurns)
	require.NotNil(t, outcome.CostUSD)
	assert.InDelta(t, 0.42, *outcome.CostUSD, 1e-9)

	record := h.completion(t)
	assert.Equal(t, research.StatusCompleted, record.Status)
	assert.Equal(t, 7, record.NumTurns)
	require.NotNil(t, record.CostUSD)
	assert.InDelta(t, 0.42, *record.CostUSD, 1e-9)
}

func TestStreamFailureMarksSessionError(t *testing.T) {
	h, engine := newHarness(t, Config{})
	boom := errors.New("connection reset")

	outcome, err := engine.Run(context.Background(), h.handle, &sliceStream{
		events: []Event{toolCall("c1", "save_note", map[string]any{"note_type": "finding", "title": "t", "content": "c"})},
		err:    boom,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, research.StatusError, outcome.Status)
	assert.Equal(t, 1, outcome.Stats.NotesSaved)

	record := h.completion(t)
	assert.Equal(t, research.StatusError, record.Status)
	assert.Equal(t, "connection reset", record.Error)
	assert.Equal(t, 1, record.Stats.NotesSaved)

	last := h.progress[len(h.progress)-1]
	assert.Equal(t, research.StatusError, last.Status)
}

func TestStreamEndingWithoutResultIsFailure(t *testing.T) {
	h, engine := newHarness(t, Config{})
	outcome, err := engine.Run(context.Background(), h.handle, NewTranscriptStream(strings.NewReader(`{"type":"text","text":"hi"}`)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamEnded)
	assert.Equal(t, research.StatusError, outcome.Status)
}

func TestRunDefaultsWebSearchToAcademicFilters(t *testing.T) {
	h, engine := newHarness(t, Config{WebProvider: search.ProviderDuckDuckGo})
	h.searcher.results = []research.SearchResult{{Title: "Paper", URL: "https://example.org/p.pdf", IsDocument: true}}

	_, err := engine.Run(context.Background(), h.handle, &sliceStream{events: []Event{
		toolCall("c1", "web_search", map[string]any{"query": "graphs"}),
		terminal(1, 0),
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"duckduckgo:graphs"}, h.searcher.calls)
	assert.True(t, h.searcher.filters[0].Academic)
	assert.Contains(t, h.results[0].Content, "PDF URLs for download:\n  - https://example.org/p.pdf")
}

func TestConcurrentRunsStayIsolated(t *testing.T) {
	h, engine := newHarness(t, Config{})
	other, err := h.store.Create("protein folding")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, handle := range []research.Handle{h.handle, other} {
		wg.Add(1)
		go func(handle research.Handle) {
			defer wg.Done()
			events := make(chan Event, 4)
			events <- toolCall("c1", "save_note", map[string]any{"note_type": "finding", "title": handle.ID, "content": "c"})
			events <- terminal(1, 0)
			close(events)
			_, runErr := engine.Run(context.Background(), handle, NewChannelStream(events))
			assert.NoError(t, runErr)
		}(handle)
	}
	wg.Wait()

	for _, handle := range []research.Handle{h.handle, other} {
		saved, err := notes.New().ReadNotes(handle, "", nil)
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.Equal(t, handle.ID, saved[0].Title)
	}
}

// Package research defines the domain model of one research session: the
// session handle and its on-disk layout, notes, reports, search results,
// download outcomes and the request handed to the reasoning engine.
package research

import (
	"path/filepath"
	"time"
)

// Layout names inside a session root. Other tooling reads these paths.
const (
	PDFDirName         = "pdfs"
	NotesDirName       = "notes"
	MetadataFileName   = "metadata.json"
	CompletionFileName = "completion.json"
	ReportFileName     = "report.md"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// IsTerminal reports whether the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Handle identifies one session and resolves paths inside it. It is a plain
// value; every component receives it explicitly.
type Handle struct {
	ID        string    `json:"id"`
	Root      string    `json:"root"`
	CreatedAt time.Time `json:"created_at"`
}

// IsZero reports whether the handle was never initialized.
func (h Handle) IsZero() bool {
	return h.Root == ""
}

func (h Handle) PDFDir() string         { return filepath.Join(h.Root, PDFDirName) }
func (h Handle) NotesDir() string       { return filepath.Join(h.Root, NotesDirName) }
func (h Handle) MetadataPath() string   { return filepath.Join(h.Root, MetadataFileName) }
func (h Handle) CompletionPath() string { return filepath.Join(h.Root, CompletionFileName) }
func (h Handle) ReportPath() string     { return filepath.Join(h.Root, ReportFileName) }

// DocumentPath returns the location of a stored document. The name must
// already be validated as a bare file name.
func (h Handle) DocumentPath(name string) string {
	return filepath.Join(h.PDFDir(), name)
}

// Stats are the resource counters of one session.
type Stats struct {
	Searches        int  `json:"searches"`
	Downloads       int  `json:"downloads"`
	PDFsRead        int  `json:"pdfs_read"`
	NotesSaved      int  `json:"notes_saved"`
	ReportGenerated bool `json:"report_generated"`
}

// Budget caps a session. Zero disables a cap.
type Budget struct {
	MaxTurns    int     `json:"max_turns,omitempty"`
	MaxCostUSD  float64 `json:"max_cost_usd,omitempty"`
	MaxSearches int     `json:"max_searches,omitempty"`
}

// Completion is the completion.json record.
type Completion struct {
	Status             Status    `json:"status"`
	CompletedAt        time.Time `json:"completed_at"`
	DurationSeconds    float64   `json:"duration_seconds"`
	APIDurationSeconds float64   `json:"api_duration_seconds,omitempty"`
	CostUSD            *float64  `json:"cost_usd"`
	NumTurns           int       `json:"num_turns"`
	Stats              Stats     `json:"stats"`
	BudgetExceeded     string    `json:"budget_exceeded,omitempty"`
	Error              string    `json:"error,omitempty"`
	RunID              string    `json:"run_id,omitempty"`
}

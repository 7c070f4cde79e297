package dispatch

import (
	"fmt"
	"time"

	"scholar/internal/domain/research"
)

const maxLogMessages = 200

// Progress is a point-in-time view of a running session for UIs.
type Progress struct {
	SessionID       string          `json:"session_id"`
	Status          research.Status `json:"status"`
	Phase           string          `json:"phase"`
	CurrentAction   string          `json:"current_action"`
	Searches        int             `json:"searches"`
	Downloads       int             `json:"downloads"`
	PDFsRead        int             `json:"pdfs_read"`
	NotesSaved      int             `json:"notes_saved"`
	ReportGenerated bool            `json:"report_generated"`
	LogMessages     []string        `json:"log_messages"`
	Error           string          `json:"error,omitempty"`
}

// Observer receives a snapshot after every processed event. It runs on the
// dispatch goroutine and must not block.
type Observer func(Progress)

type progressTracker struct {
	current  Progress
	now      func() time.Time
	observer Observer
}

func newProgressTracker(sessionID string, now func() time.Time, observer Observer) *progressTracker {
	return &progressTracker{
		current: Progress{
			SessionID: sessionID,
			Status:    research.StatusRunning,
			Phase:     "Starting research...",
		},
		now:      now,
		observer: observer,
	}
}

func (p *progressTracker) logf(format string, args ...any) {
	line := fmt.Sprintf("[%s] %s", p.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	p.current.LogMessages = append(p.current.LogMessages, line)
	if over := len(p.current.LogMessages) - maxLogMessages; over > 0 {
		p.current.LogMessages = p.current.LogMessages[over:]
	}
}

func (p *progressTracker) setStats(stats research.Stats) {
	p.current.Searches = stats.Searches
	p.current.Downloads = stats.Downloads
	p.current.PDFsRead = stats.PDFsRead
	p.current.NotesSaved = stats.NotesSaved
	p.current.ReportGenerated = stats.ReportGenerated
}

func (p *progressTracker) publish() {
	if p.observer == nil {
		return
	}
	p.observer(p.snapshot())
}

func (p *progressTracker) snapshot() Progress {
	out := p.current
	out.LogMessages = append([]string(nil), p.current.LogMessages...)
	return out
}

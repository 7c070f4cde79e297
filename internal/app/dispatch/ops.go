package dispatch

import (
	"bytes"
	"fmt"
	"strings"

	"scholar/internal/domain/research"
	serrors "scholar/internal/shared/errors"
	jsonx "scholar/internal/shared/json"
)

// OpKind is the closed set of operations the engine executes.
type OpKind int

const (
	OpUnknown OpKind = iota
	OpWebSearch
	OpArxivSearch
	OpDownload
	OpReadDocument
	OpSaveNote
	OpReadNotes
	OpWriteReport
)

var opNames = map[OpKind]string{
	OpWebSearch:    "web_search",
	OpArxivSearch:  "arxiv_search",
	OpDownload:     "download_pdfs",
	OpReadDocument: "read_pdf",
	OpSaveNote:     "save_note",
	OpReadNotes:    "read_notes",
	OpWriteReport:  "write_report",
}

var opsByName = func() map[string]OpKind {
	out := make(map[string]OpKind, len(opNames))
	for kind, name := range opNames {
		out[name] = kind
	}
	return out
}()

func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsSearch reports whether the operation consumes the search budget.
func (k OpKind) IsSearch() bool {
	return k == OpWebSearch || k == OpArxivSearch
}

// WebSearchArgs is the input of web_search.
type WebSearchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Provider   string `json:"provider"`
}

// ArxivSearchArgs is the input of arxiv_search.
type ArxivSearchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Category   string `json:"category"`
	SortBy     string `json:"sort_by"`
}

// DownloadArgs is the input of download_pdfs.
type DownloadArgs struct {
	URLs []string `json:"urls"`
}

// ReadDocumentArgs is the input of read_pdf.
type ReadDocumentArgs struct {
	Filename string `json:"filename"`
	MaxPages int    `json:"max_pages"`
}

// SaveNoteArgs is the input of save_note.
type SaveNoteArgs struct {
	NoteType string   `json:"note_type"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Source   string   `json:"source"`
	Tags     []string `json:"tags"`
}

// ReadNotesArgs is the input of read_notes.
type ReadNotesArgs struct {
	NoteType string   `json:"note_type"`
	Tags     []string `json:"tags"`
}

// WriteReportArgs is the input of write_report.
type WriteReportArgs struct {
	Title            string            `json:"title"`
	ExecutiveSummary string            `json:"executive_summary"`
	Findings         []string          `json:"findings"`
	PaperSummaries   []paperSummaryArg `json:"paper_summaries"`
	Methodology      string            `json:"methodology"`
	References       []string          `json:"references"`
}

// ReportInput converts the arguments for the synthesizer.
func (a WriteReportArgs) ReportInput() research.ReportInput {
	papers := make([]research.PaperSummary, 0, len(a.PaperSummaries))
	for _, p := range a.PaperSummaries {
		papers = append(papers, research.PaperSummary(p))
	}
	return research.ReportInput{
		Title:          a.Title,
		Summary:        a.ExecutiveSummary,
		Findings:       a.Findings,
		PaperSummaries: papers,
		Methodology:    a.Methodology,
		References:     a.References,
	}
}

// paperSummaryArg accepts either an object or a bare string, which becomes
// the summary content.
type paperSummaryArg research.PaperSummary

func (p *paperSummaryArg) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var content string
		if err := jsonx.Unmarshal(trimmed, &content); err != nil {
			return err
		}
		*p = paperSummaryArg{Content: content}
		return nil
	}
	var summary research.PaperSummary
	if err := jsonx.Unmarshal(trimmed, &summary); err != nil {
		return err
	}
	*p = paperSummaryArg(summary)
	return nil
}

// Op is a tool call decoded into its typed arguments. Args holds a pointer to
// the arguments struct matching Kind and is nil for OpUnknown.
type Op struct {
	Kind OpKind
	Name string
	Args any
}

// StripNamespace removes an "mcp__<server>__" style prefix from a tool name.
func StripNamespace(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "mcp__") {
		return name
	}
	rest := strings.TrimPrefix(name, "mcp__")
	if idx := strings.Index(rest, "__"); idx >= 0 {
		return rest[idx+2:]
	}
	return name
}

// DecodeOp resolves a tool call. Unrecognized names yield OpUnknown and no
// error; malformed input for a known operation yields a ValidationError.
func DecodeOp(call ToolCall) (Op, error) {
	name := StripNamespace(call.Name)
	kind, ok := opsByName[name]
	if !ok {
		return Op{Kind: OpUnknown, Name: name}, nil
	}
	op := Op{Kind: kind, Name: name}

	var (
		args  any
		check func() error
	)
	switch kind {
	case OpWebSearch:
		a := &WebSearchArgs{}
		args, check = a, func() error { return requireText("query", a.Query) }
	case OpArxivSearch:
		a := &ArxivSearchArgs{}
		args, check = a, func() error {
			if err := requireText("query", a.Query); err != nil {
				return err
			}
			switch strings.ToLower(strings.TrimSpace(a.SortBy)) {
			case "", "relevance", "date":
				return nil
			default:
				return &serrors.ValidationError{Field: "sort_by", Message: "must be relevance or date"}
			}
		}
	case OpDownload:
		a := &DownloadArgs{}
		args, check = a, func() error {
			if len(a.URLs) == 0 {
				return &serrors.ValidationError{Field: "urls", Message: "at least one URL is required"}
			}
			return nil
		}
	case OpReadDocument:
		a := &ReadDocumentArgs{}
		args, check = a, func() error { return requireText("filename", a.Filename) }
	case OpSaveNote:
		a := &SaveNoteArgs{}
		args, check = a, func() error {
			if _, err := research.ParseNoteType(a.NoteType); err != nil {
				return &serrors.ValidationError{Field: "note_type", Message: err.Error()}
			}
			if err := requireText("title", a.Title); err != nil {
				return err
			}
			return requireText("content", a.Content)
		}
	case OpReadNotes:
		a := &ReadNotesArgs{}
		args, check = a, func() error { return nil }
	case OpWriteReport:
		a := &WriteReportArgs{}
		args, check = a, func() error { return requireText("title", a.Title) }
	}

	if call.InputErr != nil {
		return op, &serrors.ValidationError{Field: "input", Message: fmt.Sprintf("invalid arguments for %s: %v", name, call.InputErr)}
	}
	if err := decodeInput(call.Input, args); err != nil {
		return op, &serrors.ValidationError{Field: "input", Message: fmt.Sprintf("invalid arguments for %s: %v", name, err)}
	}
	if err := check(); err != nil {
		return op, err
	}
	op.Args = args
	return op, nil
}

func decodeInput(input map[string]any, target any) error {
	if len(input) == 0 {
		return nil
	}
	raw, err := jsonx.Marshal(input)
	if err != nil {
		return err
	}
	return jsonx.Unmarshal(raw, target)
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &serrors.ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

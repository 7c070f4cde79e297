// Package session owns the on-disk layout of research sessions.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scholar/internal/domain/research"
	"scholar/internal/infra/filestore"
	serrors "scholar/internal/shared/errors"
	jsonx "scholar/internal/shared/json"
	"scholar/internal/shared/logging"
	"scholar/internal/shared/textutil"
)

const (
	idTimeLayout      = "20060102_150405"
	maxCollisionTries = 100
)

// ErrAlreadyWritten is returned when a write-once record is written twice.
var ErrAlreadyWritten = errors.New("record already written")

// Store creates and enumerates sessions under one base directory.
type Store struct {
	baseDir string
	now     func() time.Time
	logger  logging.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(logger) }
}

// New returns a store rooted at baseDir. The directory is created lazily.
func New(baseDir string, opts ...Option) *Store {
	s := &Store{
		baseDir: filestore.ResolvePath(baseDir, "research_sessions"),
		now:     time.Now,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseDir returns the resolved base directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Create makes a new session directory with its pdfs/ and notes/ areas. The
// identifier is "<yyyymmdd_hhmmss>_<topic slug>"; a numeric suffix is added
// when another session claimed the same second and topic.
func (s *Store) Create(topic string) (research.Handle, error) {
	if err := filestore.EnsureDir(s.baseDir); err != nil {
		return research.Handle{}, fmt.Errorf("create base dir: %w", err)
	}

	created := s.now()
	slug := textutil.Slug(topic, textutil.DefaultSlugLength)
	if strings.TrimSpace(slug) == "" {
		slug = "untitled"
	}
	base := created.Format(idTimeLayout) + "_" + slug

	var (
		sessionID string
		root      string
	)
	for attempt := 1; attempt <= maxCollisionTries; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = fmt.Sprintf("%s_%d", base, attempt)
		}
		path := filepath.Join(s.baseDir, candidate)
		err := os.Mkdir(path, 0o755)
		if err == nil {
			sessionID, root = candidate, path
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return research.Handle{}, fmt.Errorf("create session dir: %w", err)
		}
	}
	if root == "" {
		return research.Handle{}, fmt.Errorf("create session dir: %d sessions named %q already exist", maxCollisionTries, base)
	}

	handle := research.Handle{ID: sessionID, Root: root, CreatedAt: created}
	for _, dir := range []string{handle.PDFDir(), handle.NotesDir()} {
		if err := filestore.EnsureDir(dir); err != nil {
			return research.Handle{}, fmt.Errorf("create session layout: %w", err)
		}
	}
	s.logger.Info("Created session %s", root)
	return handle, nil
}

// Open returns the handle of an existing session.
func (s *Store) Open(sessionID string) (research.Handle, error) {
	if err := filestore.ContainedName(sessionID); err != nil {
		return research.Handle{}, &serrors.ValidationError{Field: "session", Message: err.Error()}
	}
	root := filepath.Join(s.baseDir, sessionID)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return research.Handle{}, &serrors.NotFoundError{Kind: "session", Name: sessionID}
	}
	return research.Handle{ID: sessionID, Root: root, CreatedAt: parseCreated(sessionID, info.ModTime())}, nil
}

// WriteMetadata persists the provenance record. It can only be written once.
func (s *Store) WriteMetadata(h research.Handle, doc any) error {
	data, err := filestore.MarshalJSONIndent(doc)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := filestore.WriteExclusive(h.MetadataPath(), data, 0o644); err != nil {
		if errors.Is(err, filestore.ErrExists) {
			return fmt.Errorf("metadata for %s: %w", h.ID, ErrAlreadyWritten)
		}
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// WriteCompletion persists the completion record. When one already exists the
// new fields are merged over it, so a resumed session amends rather than
// replaces what was recorded.
func (s *Store) WriteCompletion(h research.Handle, doc any) error {
	incoming, err := toMap(doc)
	if err != nil {
		return fmt.Errorf("encode completion: %w", err)
	}

	merged := map[string]any{}
	if _, err := filestore.ReadJSON(h.CompletionPath(), &merged); err != nil {
		s.logger.Warn("Replacing unreadable completion record %s: %v", h.CompletionPath(), err)
		merged = map[string]any{}
	}
	for key, value := range incoming {
		merged[key] = value
	}
	if err := filestore.WriteJSON(h.CompletionPath(), merged); err != nil {
		return fmt.Errorf("write completion: %w", err)
	}
	return nil
}

// ReadMetadata decodes metadata.json into v. found is false when absent.
func (s *Store) ReadMetadata(h research.Handle, v any) (bool, error) {
	return filestore.ReadJSON(h.MetadataPath(), v)
}

// ReadCompletion decodes completion.json into v. found is false when absent.
func (s *Store) ReadCompletion(h research.Handle, v any) (bool, error) {
	return filestore.ReadJSON(h.CompletionPath(), v)
}

// ReadReport returns the markdown report of a session.
func (s *Store) ReadReport(h research.Handle) (string, error) {
	data, err := filestore.ReadFileOrEmpty(h.ReportPath())
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	if data == nil {
		return "", &serrors.NotFoundError{Kind: "report", Name: h.ID}
	}
	return string(data), nil
}

// Summary describes one session directory for browsing.
type Summary struct {
	ID         string         `json:"id"`
	Path       string         `json:"path"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Completion map[string]any `json:"completion,omitempty"`
	HasReport  bool           `json:"has_report"`
	PDFs       []string       `json:"pdfs"`
	NoteCount  int            `json:"note_count"`
	// Problem explains why metadata could not be attached.
	Problem string `json:"problem,omitempty"`
}

// Valid reports whether the session carries readable metadata.
func (s Summary) Valid() bool {
	return s.Metadata != nil
}

// Status derives the session state from the completion record.
func (s Summary) Status() research.Status {
	if s.Completion == nil {
		return research.StatusRunning
	}
	if status, ok := s.Completion["status"].(string); ok && status != "" {
		return research.Status(status)
	}
	return research.StatusCompleted
}

// List enumerates sessions, newest first. Malformed directories are annotated,
// never fatal; a missing base directory yields an empty list.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	summaries := make([]Summary, 0, len(names))
	for _, name := range names {
		summaries = append(summaries, s.summarize(name))
	}
	return summaries, nil
}

func (s *Store) summarize(name string) Summary {
	h := research.Handle{ID: name, Root: filepath.Join(s.baseDir, name)}
	summary := Summary{ID: name, Path: h.Root, PDFs: []string{}}

	var metadata map[string]any
	found, err := s.ReadMetadata(h, &metadata)
	switch {
	case err != nil:
		summary.Problem = err.Error()
		s.logger.Warn("Session %s has unreadable metadata: %v", name, err)
	case !found:
		summary.Problem = "missing metadata.json"
	default:
		summary.Metadata = metadata
	}

	var completion map[string]any
	if found, err := s.ReadCompletion(h, &completion); err != nil {
		s.logger.Warn("Session %s has unreadable completion record: %v", name, err)
	} else if found {
		summary.Completion = completion
	}

	summary.HasReport = filestore.Exists(h.ReportPath())
	summary.PDFs = listFiles(h.PDFDir(), ".pdf")
	summary.NoteCount = len(listFiles(h.NotesDir(), ".json"))
	return summary
}

func listFiles(dir, ext string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseCreated(sessionID string, fallback time.Time) time.Time {
	if len(sessionID) >= len(idTimeLayout) {
		if t, err := time.ParseInLocation(idTimeLayout, sessionID[:len(idTimeLayout)], time.Local); err == nil {
			return t
		}
	}
	return fallback
}

func toMap(doc any) (map[string]any, error) {
	if m, ok := doc.(map[string]any); ok {
		return m, nil
	}
	data, err := jsonx.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := jsonx.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

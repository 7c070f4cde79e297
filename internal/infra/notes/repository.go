// Package notes stores immutable research notes as one JSON file each.
package notes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"scholar/internal/domain/research"
	"scholar/internal/infra/filestore"
	serrors "scholar/internal/shared/errors"
	jsonx "scholar/internal/shared/json"
	"scholar/internal/shared/logging"
	"scholar/internal/shared/textutil"
)

// Timestamp prefix of note files. Fixed width keeps name order equal to time order.
const fileTimeLayout = "20060102_150405.000000"

const maxCreateAttempts = 1000

// Repository saves and loads notes inside a session's notes/ area.
type Repository struct {
	now    func() time.Time
	logger logging.Logger

	mu   sync.Mutex
	last time.Time
}

// Option customizes a Repository.
type Option func(*Repository)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the repository logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Repository) { r.logger = logging.OrNop(logger) }
}

// New returns a Repository.
func New(opts ...Option) *Repository {
	r := &Repository{now: time.Now, logger: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveNote writes a new note and returns it with its ID (the file name) and
// server-assigned timestamp. Notes are never overwritten: a name clash moves
// the timestamp forward by a microsecond and retries.
func (r *Repository) SaveNote(h research.Handle, noteType, title, content, source string, tags []string) (research.Note, error) {
	parsed, err := research.ParseNoteType(noteType)
	if err != nil {
		return research.Note{}, &serrors.ValidationError{Field: "note_type", Message: err.Error()}
	}
	if err := filestore.EnsureDir(h.NotesDir()); err != nil {
		return research.Note{}, fmt.Errorf("create notes dir: %w", err)
	}

	note := research.Note{
		Type:    parsed,
		Title:   strings.TrimSpace(title),
		Content: content,
		Source:  strings.TrimSpace(source),
		Tags:    normalizeTags(tags),
	}
	slug := textutil.Slug(note.Title, textutil.DefaultSlugLength)
	if strings.TrimSpace(slug) == "" {
		slug = "untitled"
	}

	stamp := r.nextTimestamp()
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		note.Timestamp = stamp
		note.ID = fmt.Sprintf("%s_%s_%s.json", stamp.Format(fileTimeLayout), parsed, slug)

		data, err := filestore.MarshalJSONIndent(note)
		if err != nil {
			return research.Note{}, fmt.Errorf("encode note: %w", err)
		}
		err = filestore.WriteExclusive(filepath.Join(h.NotesDir(), note.ID), data, 0o644)
		if err == nil {
			r.logger.Debug("Saved note %s", note.ID)
			return note, nil
		}
		if !errors.Is(err, filestore.ErrExists) {
			return research.Note{}, fmt.Errorf("write note: %w", err)
		}
		stamp = r.bumpPast(stamp)
	}
	return research.Note{}, fmt.Errorf("write note: no free file name after %d attempts", maxCreateAttempts)
}

// nextTimestamp returns a time strictly after every timestamp this repository
// handed out before, at file-name resolution.
func (r *Repository) nextTimestamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().Truncate(time.Microsecond)
	if !now.After(r.last) {
		now = r.last.Add(time.Microsecond)
	}
	r.last = now
	return now
}

func (r *Repository) bumpPast(t time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := t.Add(time.Microsecond)
	if !next.After(r.last) {
		next = r.last.Add(time.Microsecond)
	}
	r.last = next
	return next
}

// ReadNotes loads notes in save order. typeFilter is a note type or "all"
// (empty means "all"); tags, when given, keep notes sharing at least one tag.
// No matching notes is an empty slice, not an error. Unreadable files are
// skipped with a warning.
func (r *Repository) ReadNotes(h research.Handle, typeFilter string, tags []string) ([]research.Note, error) {
	var wantType research.NoteType
	if filter := strings.TrimSpace(typeFilter); filter != "" && !strings.EqualFold(filter, research.NoteTypeAll) {
		parsed, err := research.ParseNoteType(filter)
		if err != nil {
			return nil, &serrors.ValidationError{Field: "note_type", Message: err.Error()}
		}
		wantType = parsed
	}
	wantTags := normalizeTags(tags)

	entries, err := os.ReadDir(h.NotesDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []research.Note{}, nil
		}
		return nil, fmt.Errorf("list notes: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	notes := make([]research.Note, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(h.NotesDir(), name))
		if err != nil {
			r.logger.Warn("Skipping unreadable note %s: %v", name, err)
			continue
		}
		var note research.Note
		if err := jsonx.Unmarshal(data, &note); err != nil {
			r.logger.Warn("Skipping malformed note %s: %v", name, err)
			continue
		}
		note.ID = name
		if wantType != "" && note.Type != wantType {
			continue
		}
		if len(wantTags) > 0 && !note.HasAnyTag(wantTags) {
			continue
		}
		notes = append(notes, note)
	}
	return notes, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

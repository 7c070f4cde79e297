package research

import (
	"fmt"
	"strings"
	"time"

	jsonx "scholar/internal/shared/json"
)

// NoteType is the fixed enumeration of note kinds.
type NoteType string

const (
	NoteFinding      NoteType = "finding"
	NotePaperSummary NoteType = "paper_summary"
	NoteInsight      NoteType = "insight"
	NoteSynthesis    NoteType = "synthesis"
)

// NoteTypeAll is the read filter that matches every note type.
const NoteTypeAll = "all"

// NoteTypes lists the valid types in display order.
var NoteTypes = []NoteType{NoteFinding, NotePaperSummary, NoteInsight, NoteSynthesis}

// ParseNoteType validates raw against the enumeration.
func ParseNoteType(raw string) (NoteType, error) {
	value := NoteType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range NoteTypes {
		if value == known {
			return value, nil
		}
	}
	return "", fmt.Errorf("unknown note type %q (want one of finding, paper_summary, insight, synthesis)", raw)
}

// Note is one immutable finding. Field names match the on-disk record.
type Note struct {
	ID        string    `json:"-"`
	Type      NoteType  `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Tags      []string  `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
}

// noteTimeLayouts are accepted when reading notes. Records written by other
// tooling may carry a local time without a zone offset.
var noteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseNoteTime parses an ISO-8601 note timestamp. Values without an offset
// are read as local time.
func ParseNoteTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range noteTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized note timestamp %q", raw)
}

// UnmarshalJSON decodes a note record, accepting zone-less timestamps.
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      NoteType `json:"type"`
		Title     string   `json:"title"`
		Content   string   `json:"content"`
		Source    string   `json:"source"`
		Tags      []string `json:"tags"`
		Timestamp string   `json:"timestamp"`
	}
	if err := jsonx.Unmarshal(data, &raw); err != nil {
		return err
	}
	note := Note{
		ID:      n.ID,
		Type:    raw.Type,
		Title:   raw.Title,
		Content: raw.Content,
		Source:  raw.Source,
		Tags:    raw.Tags,
	}
	if raw.Timestamp != "" {
		t, err := ParseNoteTime(raw.Timestamp)
		if err != nil {
			return err
		}
		note.Timestamp = t
	}
	*n = note
	return nil
}

// HasAnyTag reports whether the note carries at least one of tags.
func (n Note) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range n.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

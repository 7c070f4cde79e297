package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scholar/internal/domain/research"
	serrors "scholar/internal/shared/errors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateLaysOutSession(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2024, 5, 17, 9, 30, 5, 0, time.Local)
	store := New(base, WithClock(fixedClock(now)))

	h, err := store.Create("Protein folding: AlphaFold?")
	require.NoError(t, err)

	require.Equal(t, "20240517_093005_Protein folding_ AlphaFold_", h.ID)
	require.Equal(t, filepath.Join(base, h.ID), h.Root)
	require.DirExists(t, h.PDFDir())
	require.DirExists(t, h.NotesDir())
	require.Equal(t, now, h.CreatedAt)
}

func TestCreateAvoidsCollisions(t *testing.T) {
	store := New(t.TempDir(), WithClock(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))))

	const n = 8
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := store.Create("same topic")
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			ids <- h.Root
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate root %s", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}

func TestCreateFailsOnUnwritableBase(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New(file).Create("topic")
	require.Error(t, err)
}

func TestMetadataIsWriteOnce(t *testing.T) {
	store := New(t.TempDir())
	h, err := store.Create("topic")
	require.NoError(t, err)

	require.NoError(t, store.WriteMetadata(h, map[string]any{"topic": "topic"}))
	err = store.WriteMetadata(h, map[string]any{"topic": "other"})
	require.True(t, errors.Is(err, ErrAlreadyWritten))

	var meta map[string]any
	found, err := store.ReadMetadata(h, &meta)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "topic", meta["topic"])
}

func TestWriteCompletionMerges(t *testing.T) {
	store := New(t.TempDir())
	h, err := store.Create("topic")
	require.NoError(t, err)

	require.NoError(t, store.WriteCompletion(h, map[string]any{"status": "error", "num_turns": 3, "error": "stream closed"}))
	require.NoError(t, store.WriteCompletion(h, research.Completion{Status: research.StatusCompleted, NumTurns: 7}))

	var completion map[string]any
	_, err = store.ReadCompletion(h, &completion)
	require.NoError(t, err)
	require.Equal(t, "completed", completion["status"])
	require.EqualValues(t, 7, completion["num_turns"])
	require.Equal(t, "stream closed", completion["error"])
}

func TestListNewestFirstAndAnnotatesMalformed(t *testing.T) {
	base := t.TempDir()
	older := New(base, WithClock(fixedClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local))))
	newer := New(base, WithClock(fixedClock(time.Date(2024, 2, 1, 10, 0, 0, 0, time.Local))))

	h1, err := older.Create("first")
	require.NoError(t, err)
	require.NoError(t, older.WriteMetadata(h1, map[string]any{"topic": "first"}))
	require.NoError(t, os.WriteFile(h1.ReportPath(), []byte("# report"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(h1.PDFDir(), "b.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(h1.PDFDir(), "a.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(h1.NotesDir(), "n.json"), []byte("{}"), 0o644))

	h2, err := newer.Create("second")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(h2.MetadataPath(), []byte("{not json"), 0o644))

	require.NoError(t, os.Mkdir(filepath.Join(base, "stray"), 0o755))

	summaries, err := older.List()
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	require.Equal(t, "stray", summaries[0].ID)
	require.False(t, summaries[0].Valid())
	require.Equal(t, "missing metadata.json", summaries[0].Problem)

	require.Equal(t, h2.ID, summaries[1].ID)
	require.False(t, summaries[1].Valid())
	require.NotEmpty(t, summaries[1].Problem)

	require.Equal(t, h1.ID, summaries[2].ID)
	require.True(t, summaries[2].Valid())
	require.True(t, summaries[2].HasReport)
	require.Equal(t, []string{"a.pdf", "b.pdf"}, summaries[2].PDFs)
	require.Equal(t, 1, summaries[2].NoteCount)
	require.Equal(t, research.StatusRunning, summaries[2].Status())
}

func TestListMissingBaseIsEmpty(t *testing.T) {
	summaries, err := New(filepath.Join(t.TempDir(), "absent")).List()
	require.NoError(t, err)
	require.Empty(t, summaries)
}

func TestOpenAndReadReport(t *testing.T) {
	store := New(t.TempDir())
	h, err := store.Create("topic")
	require.NoError(t, err)

	opened, err := store.Open(h.ID)
	require.NoError(t, err)
	require.Equal(t, h.Root, opened.Root)

	_, err = store.ReadReport(h)
	require.True(t, serrors.IsNotFound(err))

	require.NoError(t, os.WriteFile(h.ReportPath(), []byte("# Research Report: topic"), 0o644))
	report, err := store.ReadReport(opened)
	require.NoError(t, err)
	require.Contains(t, report, "Research Report")

	_, err = store.Open("missing")
	require.True(t, serrors.IsNotFound(err))
	_, err = store.Open("../escape")
	require.True(t, serrors.IsValidation(err))
}

func TestActiveSessionIsContextLocal(t *testing.T) {
	a := research.Handle{ID: "a", Root: "/tmp/a"}
	b := research.Handle{ID: "b", Root: "/tmp/b"}

	ctxA := WithActive(context.Background(), a)
	ctxB := WithActive(context.Background(), b)

	gotA, ok := Active(ctxA)
	require.True(t, ok)
	require.Equal(t, "a", gotA.ID)

	gotB, ok := Active(ctxB)
	require.True(t, ok)
	require.Equal(t, "b", gotB.ID)

	_, ok = Active(context.Background())
	require.False(t, ok)
}

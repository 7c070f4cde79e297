package filestore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestAtomicWrite_CreatesFileAndParentDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "deep", "file.json")

	if err := AtomicWrite(target, []byte(`{"ok":true}`), 0o600); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", data)
	}
}

func TestAtomicWrite_NoTempFileLeftOnSuccess(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "file.json")

	if err := AtomicWrite(target, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "file.json" {
		t.Fatalf("expected only the target file, got %v", entries)
	}
}

func TestAtomicWrite_ConcurrentWritersLeaveOneWholeFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.md")
	payloads := []string{"aaaaaaaa", "bbbbbbbb", "cccccccc", "dddddddd"}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			if err := AtomicWrite(target, []byte(p), 0o644); err != nil {
				t.Errorf("AtomicWrite: %v", err)
			}
		}(p)
	}
	wg.Wait()

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range payloads {
		if string(data) == p {
			found = true
		}
	}
	if !found {
		t.Fatalf("unexpected mixed content: %q", data)
	}
}

func TestWriteExclusive_RefusesExisting(t *testing.T) {
	target := filepath.Join(t.TempDir(), "note.json")
	if err := WriteExclusive(target, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := WriteExclusive(target, []byte("two"), 0o644)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "one" {
		t.Fatalf("existing file was modified: %q", data)
	}
}

func TestReadFileOrEmpty_MissingReturnsNilNil(t *testing.T) {
	data, err := ReadFileOrEmpty(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil data, got: %s", data)
	}
}

func TestReadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	var out map[string]any
	found, err := ReadJSON(path, &out)
	if err != nil || found {
		t.Fatalf("expected missing file to be not found, got found=%v err=%v", found, err)
	}

	if err := WriteJSON(path, map[string]any{"topic": "graphs"}); err != nil {
		t.Fatal(err)
	}
	found, err = ReadJSON(path, &out)
	if err != nil || !found {
		t.Fatalf("expected decoded file, got found=%v err=%v", found, err)
	}
	if out["topic"] != "graphs" {
		t.Fatalf("unexpected content: %v", out)
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if found, err = ReadJSON(path, &out); err == nil || !found {
		t.Fatalf("expected decode error for malformed file")
	}
}

func TestContainedName(t *testing.T) {
	for _, ok := range []string{"paper.pdf", "1706.03762.pdf"} {
		if err := ContainedName(ok); err != nil {
			t.Fatalf("expected %q to be accepted: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "..", "../etc/passwd", "a/b.pdf", `a\b.pdf`} {
		if err := ContainedName(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("SCHOLAR_TEST_ROOT", "/data")
	if got := ResolvePath("", "$SCHOLAR_TEST_ROOT/sessions"); got != "/data/sessions" {
		t.Fatalf("unexpected path %q", got)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ResolvePath("~/sessions", ""); got != filepath.Join(home, "sessions") {
		t.Fatalf("unexpected path %q", got)
	}
}

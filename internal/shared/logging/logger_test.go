package logging

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(format string, args ...any) { r.lines = append(r.lines, "debug") }
func (r *recordingLogger) Info(format string, args ...any)  { r.lines = append(r.lines, "info") }
func (r *recordingLogger) Warn(format string, args ...any)  { r.lines = append(r.lines, "warn") }
func (r *recordingLogger) Error(format string, args ...any) { r.lines = append(r.lines, "error") }

func TestOrNopHandlesTypedNilPointers(t *testing.T) {
	var typed *recordingLogger
	var logger Logger = typed
	if !IsNil(logger) {
		t.Fatalf("expected typed nil pointer to be detected")
	}
	safe := OrNop(logger)
	if IsNil(safe) {
		t.Fatalf("expected OrNop to return a usable logger")
	}
	safe.Info("hello %s", "world")
}

func TestMultiFansOutAndFlattens(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	var typed *recordingLogger

	logger := Multi(Multi(a, typed), nil, b)
	logger.Warn("x")
	logger.Error("y")

	require.Equal(t, []string{"warn", "error"}, a.lines)
	require.Equal(t, []string{"warn", "error"}, b.lines)
	require.Same(t, a, Multi(nil, a))
}

func TestFromZapFormatsMessagesWithComponent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core), "fetcher")

	logger.Info("downloaded %d of %d", 2, 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "downloaded 2 of 3", entries[0].Message)
	require.Equal(t, "fetcher", entries[0].ContextMap()["component"])
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	_, err := Configure(Config{Level: "chatty"})
	require.Error(t, err)
}

func TestConfigureWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scholar.log")
	flush, err := Configure(Config{Level: "debug", File: path})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = Configure(Config{}) })

	NewComponentLogger("test").Info("hello %s", "file")
	_ = flush()

	require.FileExists(t, path)
}

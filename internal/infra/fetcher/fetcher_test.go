package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"scholar/internal/domain/research"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

var pdfBody = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF")

func newSession(t *testing.T) research.Handle {
	t.Helper()
	root := t.TempDir()
	h := research.Handle{ID: "test", Root: root}
	require.NoError(t, os.MkdirAll(h.PDFDir(), 0o755))
	return h
}

func newTestFetcher(timeout time.Duration, concurrency int) *Fetcher {
	client := &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	return New(Config{Timeout: timeout, Concurrency: concurrency}, WithHTTPClient(client))
}

func TestFetchAllDownloadsThenSkips(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdfBody)
	}))
	defer srv.Close()

	h := newSession(t)
	f := newTestFetcher(5*time.Second, 1)
	urls := []string{srv.URL + "/pdf/1706.03762.pdf"}

	first := f.FetchAll(context.Background(), h, urls)
	require.Equal(t, 1, first.Total)
	require.Equal(t, 1, first.Successful)
	require.Equal(t, 0, first.Failed)
	require.Equal(t, 0, first.Skipped)
	require.Equal(t, "1706.03762.pdf", first.Outcomes[0].Filename)
	require.EqualValues(t, len(pdfBody), first.Outcomes[0].Bytes)

	data, err := os.ReadFile(filepath.Join(h.PDFDir(), "1706.03762.pdf"))
	require.NoError(t, err)
	require.Equal(t, pdfBody, data)

	second := f.FetchAll(context.Background(), h, urls)
	require.Equal(t, 1, second.Skipped)
	require.Equal(t, 0, second.Successful)
	require.Equal(t, research.DownloadSkipped, second.Outcomes[0].Status)
	require.EqualValues(t, 1, hits.Load(), "skipped URL must not hit the network")
}

func TestFetchAllRejectsHTMLErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>Access Denied</title></head><body>nope</body></html>"))
	}))
	defer srv.Close()

	h := newSession(t)
	report := newTestFetcher(5*time.Second, 1).FetchAll(context.Background(), h, []string{srv.URL + "/paper.pdf"})

	require.Equal(t, 1, report.Failed)
	outcome := report.Outcomes[0]
	require.Equal(t, research.DownloadFailed, outcome.Status)
	require.Equal(t, research.FailureNotPDF, outcome.Kind)
	require.True(t, strings.HasPrefix(outcome.Reason, "not a PDF"))
	require.Contains(t, outcome.Reason, "Access Denied")
	require.NoFileExists(t, filepath.Join(h.PDFDir(), "paper.pdf"))
}

func TestFetchAllAcceptsMagicWithoutHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pdfBody)
	}))
	defer srv.Close()

	h := newSession(t)
	report := newTestFetcher(5*time.Second, 1).FetchAll(context.Background(), h, []string{srv.URL + "/download?id=42"})
	require.Equal(t, 1, report.Successful)
	require.Equal(t, "download.pdf", report.Outcomes[0].Filename)
}

func TestFetchAllClassifiesFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/slow.pdf", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/ok.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pdfBody)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := newSession(t)
	report := newTestFetcher(100*time.Millisecond, 1).FetchAll(context.Background(), h, []string{
		srv.URL + "/missing.pdf",
		srv.URL + "/slow.pdf",
		"ftp://example.org/x.pdf",
		srv.URL + "/ok.pdf",
	})

	require.Equal(t, 4, report.Total)
	require.Equal(t, 1, report.Successful)
	require.Equal(t, 3, report.Failed)

	require.Equal(t, research.FailureHTTPStatus, report.Outcomes[0].Kind)
	require.Equal(t, "HTTP 404", report.Outcomes[0].Reason)
	require.Equal(t, research.FailureTimeout, report.Outcomes[1].Kind)
	require.Equal(t, "timeout", report.Outcomes[1].Reason)
	require.Equal(t, research.FailureInvalidURL, report.Outcomes[2].Kind)
	require.Equal(t, research.DownloadSuccessful, report.Outcomes[3].Status)
}

func TestFetchAllConcurrentKeepsOrderAndDedups(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdfBody)
	}))
	defer srv.Close()

	urls := []string{
		srv.URL + "/a.pdf",
		srv.URL + "/b.pdf",
		srv.URL + "/mirror/a.pdf",
		srv.URL + "/c.pdf",
	}
	h := newSession(t)
	report := newTestFetcher(5*time.Second, 3).FetchAll(context.Background(), h, urls)

	require.Equal(t, 4, report.Total)
	require.Equal(t, 3, report.Successful)
	require.Equal(t, 1, report.Skipped)
	for i, u := range urls {
		require.Equal(t, u, report.Outcomes[i].URL)
	}
	require.Equal(t, research.DownloadSkipped, report.Outcomes[2].Status)
	require.EqualValues(t, 3, hits.Load())
}

func TestFetchAllEmpty(t *testing.T) {
	report := newTestFetcher(time.Second, 1).FetchAll(context.Background(), newSession(t), nil)
	require.Equal(t, 0, report.Total)
	require.Empty(t, report.Outcomes)
}

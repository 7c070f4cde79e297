package research

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestNormalizeDefaults(t *testing.T) {
	req := Request{Topic: "  graph neural networks ", Domains: []string{" ml ", "", "chemistry"}}
	require.NoError(t, req.Normalize())

	require.Equal(t, "graph neural networks", req.Topic)
	require.Equal(t, DepthStandard, req.Depth)
	require.Equal(t, DefaultMaxPapers, req.MaxPapers)
	require.Equal(t, DefaultMaxSearches, req.MaxSearches)
	require.Equal(t, []string{"ml", "chemistry"}, req.Domains)
}

func TestRequestNormalizeRejects(t *testing.T) {
	require.Error(t, (&Request{}).Normalize())
	require.Error(t, (&Request{Topic: "x", Depth: "extreme"}).Normalize())
}

func TestRequestPrompt(t *testing.T) {
	req := Request{Topic: "CRISPR delivery", Background: "Survey for a grant.", Depth: DepthDeep, MaxPapers: 12, MaxSearches: 5}
	prompt := req.Prompt()

	require.True(t, strings.HasPrefix(prompt, "## Research Request\n\n**Topic**: CRISPR delivery\n"))
	require.Contains(t, prompt, "- Depth: deep (Deep analysis - exhaustive search")
	require.Contains(t, prompt, "- Time Period: Any time period\n")
	require.Contains(t, prompt, "- Focus Domains: All relevant academic domains\n")
	require.Contains(t, prompt, "- Maximum Web Searches: 5\n")
}

func TestRequestMetadata(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	meta := Request{Topic: "t", Depth: DepthQuick, MaxPapers: 3}.Metadata(created)

	require.Nil(t, meta.TimePeriod)
	require.NotNil(t, meta.Domains)
	require.Equal(t, created, meta.CreatedAt)
}

func TestParseNoteType(t *testing.T) {
	got, err := ParseNoteType(" Paper_Summary ")
	require.NoError(t, err)
	require.Equal(t, NotePaperSummary, got)

	_, err = ParseNoteType("opinion")
	require.Error(t, err)
}

func TestDownloadReportCounts(t *testing.T) {
	var report DownloadReport
	report.Add(DownloadOutcome{Status: DownloadSuccessful})
	report.Add(DownloadOutcome{Status: DownloadSkipped})
	report.Add(DownloadOutcome{Status: DownloadFailed})

	require.Equal(t, 3, report.Total)
	require.Equal(t, 1, report.Successful)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 1, report.Failed)
}

func TestParseNoteTime(t *testing.T) {
	for _, raw := range []string{
		"2024-05-01T12:00:00Z",
		"2024-05-01T14:00:00+02:00",
		"2024-05-01T12:00:00.123456",
		"2024-05-01T12:00:00",
		"2024-05-01 12:00:00",
	} {
		_, err := ParseNoteTime(raw)
		require.NoError(t, err, raw)
	}
	_, err := ParseNoteTime("May 1st")
	require.Error(t, err)
}

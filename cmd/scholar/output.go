package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"scholar/internal/app/dispatch"
	"scholar/internal/domain/research"
	jsonx "scholar/internal/shared/json"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func errorText(msg string) string { return red(msg) }

func statusText(status research.Status) string {
	switch status {
	case research.StatusCompleted:
		return green(string(status))
	case research.StatusError:
		return red(string(status))
	default:
		return yellow(string(status))
	}
}

// progressPrinter echoes new log lines from each progress snapshot.
type progressPrinter struct {
	out  io.Writer
	last string
}

func (p *progressPrinter) observe(progress dispatch.Progress) {
	lines := progress.LogMessages
	start := 0
	// The tracker drops its oldest lines once full, so resume after the last
	// line printed rather than at a fixed offset.
	if p.last != "" {
		for i := len(lines) - 1; i >= 0; i-- {
			if lines[i] == p.last {
				start = i + 1
				break
			}
		}
	}
	for _, line := range lines[start:] {
		fmt.Fprintln(p.out, gray(line))
	}
	if len(lines) > 0 {
		p.last = lines[len(lines)-1]
	}
}

func printOutcome(w io.Writer, outcome dispatch.Outcome) {
	fmt.Fprintf(w, "\n%s %s\n", bold("Session:"), outcome.SessionID)
	fmt.Fprintf(w, "  Status:   %s\n", statusText(outcome.Status))
	fmt.Fprintf(w, "  Path:     %s\n", outcome.SessionPath)
	if outcome.ReportPath != "" {
		fmt.Fprintf(w, "  Report:   %s\n", cyan(outcome.ReportPath))
	}
	fmt.Fprintf(w, "  Duration: %.1fs (api %.1fs)\n", outcome.DurationSeconds, outcome.APIDurationSeconds)
	if outcome.CostUSD != nil {
		fmt.Fprintf(w, "  Cost:     $%.4f\n", *outcome.CostUSD)
	}
	fmt.Fprintf(w, "  Turns:    %d\n", outcome.NumTurns)
	stats := outcome.Stats
	fmt.Fprintf(w, "  Searches: %d, Downloads: %d, PDFs read: %d, Notes: %d\n",
		stats.Searches, stats.Downloads, stats.PDFsRead, stats.NotesSaved)
	if outcome.BudgetExceeded != "" {
		fmt.Fprintf(w, "  %s %s\n", yellow("Budget:"), outcome.BudgetExceeded)
	}
	if len(outcome.Failures) > 0 {
		fmt.Fprintf(w, "  %s\n", yellow(fmt.Sprintf("Failures (%d):", len(outcome.Failures))))
		for _, f := range outcome.Failures {
			item := f.Item
			if item == "" {
				item = f.Op
			}
			fmt.Fprintf(w, "    - %s: %s\n", item, f.Reason)
		}
	}
	if outcome.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", red("Error:"), outcome.Error)
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func disableColor() {
	color.NoColor = true
}

func jsonIndent(v any) ([]byte, error) {
	return jsonx.MarshalIndent(v, "", "  ")
}

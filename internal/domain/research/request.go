package research

import (
	"fmt"
	"strings"
	"time"
)

// Depth selects how exhaustive a research run should be.
type Depth string

const (
	DepthQuick    Depth = "quick"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

const (
	DefaultMaxPapers   = 10
	DefaultMaxSearches = 20
)

var depthDescriptions = map[Depth]string{
	DepthQuick:    "Quick overview - find 2-3 key papers and summarize main points",
	DepthStandard: "Standard depth - find 5-7 papers, analyze thoroughly, provide comprehensive synthesis",
	DepthDeep:     "Deep analysis - exhaustive search, 10+ papers, detailed analysis of methodology and findings",
}

// Request is the structured research brief a session starts from.
type Request struct {
	Topic              string   `json:"topic"`
	Background         string   `json:"background"`
	Depth              Depth    `json:"depth"`
	MaxPapers          int      `json:"max_papers"`
	TimePeriod         string   `json:"time_period,omitempty"`
	Domains            []string `json:"domains,omitempty"`
	CompletionCriteria string   `json:"completion_criteria,omitempty"`
	MaxSearches        int      `json:"max_searches"`
	Model              string   `json:"model,omitempty"`
}

// Normalize trims fields and fills defaults. It returns an error when the
// request cannot start a session.
func (r *Request) Normalize() error {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Background = strings.TrimSpace(r.Background)
	r.TimePeriod = strings.TrimSpace(r.TimePeriod)
	if r.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if r.Depth == "" {
		r.Depth = DepthStandard
	}
	if _, ok := depthDescriptions[r.Depth]; !ok {
		return fmt.Errorf("unknown depth %q (want quick, standard or deep)", r.Depth)
	}
	if r.MaxPapers <= 0 {
		r.MaxPapers = DefaultMaxPapers
	}
	if r.MaxSearches <= 0 {
		r.MaxSearches = DefaultMaxSearches
	}
	domains := r.Domains[:0]
	for _, d := range r.Domains {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	r.Domains = domains
	return nil
}

// Metadata is the metadata.json record written once at session start.
type Metadata struct {
	Topic              string    `json:"topic"`
	Background         string    `json:"background"`
	Depth              Depth     `json:"depth"`
	MaxPapers          int       `json:"max_papers"`
	MaxSearches        int       `json:"max_searches"`
	TimePeriod         *string   `json:"time_period"`
	Domains            []string  `json:"domains"`
	CompletionCriteria string    `json:"completion_criteria,omitempty"`
	Model              string    `json:"model,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Metadata renders the provenance record for this request.
func (r Request) Metadata(createdAt time.Time) Metadata {
	var period *string
	if r.TimePeriod != "" {
		p := r.TimePeriod
		period = &p
	}
	domains := r.Domains
	if domains == nil {
		domains = []string{}
	}
	return Metadata{
		Topic:              r.Topic,
		Background:         r.Background,
		Depth:              r.Depth,
		MaxPapers:          r.MaxPapers,
		MaxSearches:        r.MaxSearches,
		TimePeriod:         period,
		Domains:            domains,
		CompletionCriteria: r.CompletionCriteria,
		Model:              r.Model,
		CreatedAt:          createdAt,
	}
}

// Prompt renders the brief handed to the reasoning engine as its first message.
func (r Request) Prompt() string {
	domains := "All relevant academic domains"
	if len(r.Domains) > 0 {
		domains = strings.Join(r.Domains, ", ")
	}
	period := r.TimePeriod
	if period == "" {
		period = "Any time period"
	}
	criteria := r.CompletionCriteria
	if criteria == "" {
		criteria = "Agent determines completion based on standard criteria"
	}

	var b strings.Builder
	b.WriteString("## Research Request\n\n")
	fmt.Fprintf(&b, "**Topic**: %s\n\n", r.Topic)
	fmt.Fprintf(&b, "**Background Context**:\n%s\n\n", r.Background)
	b.WriteString("**Research Parameters**:\n")
	fmt.Fprintf(&b, "- Depth: %s (%s)\n", r.Depth, depthDescriptions[r.Depth])
	fmt.Fprintf(&b, "- Maximum Papers to Analyze: %d\n", r.MaxPapers)
	fmt.Fprintf(&b, "- Time Period: %s\n", period)
	fmt.Fprintf(&b, "- Focus Domains: %s\n\n", domains)
	fmt.Fprintf(&b, "**Completion Criteria**:\n%s\n\n", criteria)
	fmt.Fprintf(&b, "**Resource Limits**:\n- Maximum Web Searches: %d\n\n", r.MaxSearches)
	b.WriteString("---\n\n")
	b.WriteString("Begin your autonomous research now. Execute your plan completely without asking questions. ")
	b.WriteString("Use your tools proactively and produce a final comprehensive report when done.\n")
	return b.String()
}

// Budget derives the session caps from the request and the configured ceilings.
func (r Request) Budget(maxTurns int, maxCostUSD float64) Budget {
	return Budget{MaxTurns: maxTurns, MaxCostUSD: maxCostUSD, MaxSearches: r.MaxSearches}
}

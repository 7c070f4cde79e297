package research

// PaperSummary is one entry of the report's paper section.
type PaperSummary struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

// ReportInput is everything a report is assembled from.
type ReportInput struct {
	Title          string         `json:"title"`
	Summary        string         `json:"summary"`
	Findings       []string       `json:"findings"`
	PaperSummaries []PaperSummary `json:"paper_summaries"`
	Methodology    string         `json:"methodology"`
	References     []string       `json:"references"`
}

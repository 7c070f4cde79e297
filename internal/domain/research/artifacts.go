package research

// SearchResult is the provider-independent search hit.
type SearchResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet"`
	IsDocument bool   `json:"is_document"`
	Provider   string `json:"provider,omitempty"`

	// arXiv-only metadata.
	ArxivID    string   `json:"arxiv_id,omitempty"`
	Authors    []string `json:"authors,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Published  string   `json:"published,omitempty"`
	PDFURL     string   `json:"pdf_url,omitempty"`
}

// SearchFilters narrow a provider query. Providers ignore what they cannot express.
type SearchFilters struct {
	Domains  []string `json:"domains,omitempty"`
	Category string   `json:"category,omitempty"`
	SortBy   string   `json:"sort_by,omitempty"`
	Academic bool     `json:"academic,omitempty"`
}

// DownloadStatus is the per-URL fetch outcome.
type DownloadStatus string

const (
	DownloadSuccessful DownloadStatus = "successful"
	DownloadFailed     DownloadStatus = "failed"
	DownloadSkipped    DownloadStatus = "skipped"
)

// FailureKind classifies a failed download.
type FailureKind string

const (
	FailureTimeout    FailureKind = "timeout"
	FailureHTTPStatus FailureKind = "http_status"
	FailureNotPDF     FailureKind = "not_pdf"
	FailureNetwork    FailureKind = "network"
	FailureInvalidURL FailureKind = "invalid_url"
)

// DownloadOutcome records what happened to one URL.
type DownloadOutcome struct {
	URL      string         `json:"url"`
	Filename string         `json:"filename"`
	Status   DownloadStatus `json:"status"`
	Bytes    int64          `json:"bytes,omitempty"`
	Kind     FailureKind    `json:"kind,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// DownloadReport holds one outcome per requested URL, in request order.
type DownloadReport struct {
	Outcomes   []DownloadOutcome `json:"outcomes"`
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
}

// Add appends an outcome and updates the counts.
func (r *DownloadReport) Add(outcome DownloadOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	r.Total++
	switch outcome.Status {
	case DownloadSuccessful:
		r.Successful++
	case DownloadSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// ExtractedText is the result of reading one stored document.
type ExtractedText struct {
	Filename   string `json:"filename"`
	Text       string `json:"text"`
	PagesRead  int    `json:"pages_read"`
	TotalPages int    `json:"total_pages"`
	// PagesWithText counts read pages that yielded any text.
	PagesWithText int  `json:"pages_with_text"`
	Truncated     bool `json:"truncated"`
	// Warning is set when the document opened but produced no usable text.
	Warning string `json:"warning,omitempty"`
}

// HasText reports whether extraction produced usable text.
func (e ExtractedText) HasText() bool {
	return e.Warning == "" && e.Text != ""
}

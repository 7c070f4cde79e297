package dispatch

import "scholar/internal/domain/research"

// ToolDefinition describes a tool for the reasoning engine.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema defines tool parameters (JSON Schema format).
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

var stringItems = &Property{Type: "string"}

// Catalog lists the definitions of every operation the engine executes, in
// workflow order.
func Catalog() []ToolDefinition {
	noteTypes := make([]any, 0, len(research.NoteTypes))
	for _, t := range research.NoteTypes {
		noteTypes = append(noteTypes, string(t))
	}
	noteFilter := append([]any{string(research.NoteTypeAll)}, noteTypes...)

	return []ToolDefinition{
		{
			Name:        OpWebSearch.String(),
			Description: "Search the web for academic papers and PDFs. Results are limited to scholarly domains.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]Property{
					"query":       {Type: "string", Description: "The search query"},
					"max_results": {Type: "integer", Description: "Maximum results (default: 10)"},
					"provider":    {Type: "string", Description: "Search backend (default: configured provider)", Enum: []any{"tavily", "duckduckgo"}},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        OpArxivSearch.String(),
			Description: "Search arXiv for papers. Every result carries a direct PDF link.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]Property{
					"query":       {Type: "string", Description: "Search query (e.g., 'transformer attention mechanism')"},
					"max_results": {Type: "integer", Description: "Maximum number of results (default: 10, max: 50)"},
					"category":    {Type: "string", Description: "arXiv category filter (e.g., 'cs.AI', 'cs.CL')"},
					"sort_by":     {Type: "string", Description: "Sort by relevance or submission date (default: relevance)", Enum: []any{"relevance", "date"}},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        OpDownload.String(),
			Description: "Download PDFs into the session. Files that already exist are skipped.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]Property{
					"urls": {Type: "array", Description: "PDF URLs to download", Items: stringItems},
				},
				Required: []string{"urls"},
			},
		},
		{
			Name:        OpReadDocument.String(),
			Description: "Extract text from a downloaded PDF.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]Property{
					"filename":  {Type: "string", Description: "PDF filename"},
					"max_pages": {Type: "integer", Description: "Max pages to read"},
				},
				Required: []string{"filename"},
			},
		},
		{
			Name:        OpSaveNote.String(),
			Description: "Save a research note. Notes are immutable; record new information as a new note.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]Property{
					"note_type": {Type: "string", Enum: noteTypes},
					"title":     {Type: "string"},
					"content":   {Type: "string"},
					"source":    {Type: "string"},
					"tags":      {Type: "array", Items: stringItems},
				},
				Required: []string{"note_type", "title", "content"},
			},
		},
		{
			Name:        OpReadNotes.String(),
			Description: "Read saved notes in the order they were written.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]Property{
					"note_type": {Type: "string", Enum: noteFilter},
					"tags":      {Type: "array", Description: "Filter by tags - returns notes with any matching tag (optional)", Items: stringItems},
				},
			},
		},
		{
			Name:        OpWriteReport.String(),
			Description: "Generate and save the final research report.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]Property{
					"title":             {Type: "string"},
					"executive_summary": {Type: "string"},
					"findings":          {Type: "array", Items: stringItems},
					"paper_summaries":   {Type: "array", Items: &Property{Type: "object"}},
					"methodology":       {Type: "string"},
					"references":        {Type: "array", Items: stringItems},
				},
				Required: []string{"title", "executive_summary"},
			},
		},
	}
}

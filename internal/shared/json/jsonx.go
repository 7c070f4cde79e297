package jsonx

import "github.com/goccy/go-json"

// Thin wrapper so record I/O can swap JSON implementations in one place.
var (
	Marshal       = json.Marshal
	MarshalIndent = json.MarshalIndent
	Unmarshal     = json.Unmarshal
	NewDecoder    = json.NewDecoder
	NewEncoder    = json.NewEncoder
)

type RawMessage = json.RawMessage
type Number = json.Number

// Valid reports whether data is a well-formed JSON document.
var Valid = json.Valid

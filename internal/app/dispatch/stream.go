package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kaptinlin/jsonrepair"

	jsonx "scholar/internal/shared/json"
)

const maxTranscriptLine = 16 << 20

// wireEvent is the JSON-lines shape of one event. Result fields follow the
// reasoning engine's own result message names.
type wireEvent struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
	// Arguments carries the input as a JSON string, as chat-completion APIs send it.
	Arguments string `json:"arguments,omitempty"`

	CallID  string `json:"call_id,omitempty"`
	Content string `json:"content,omitempty"`
	IsError bool   `json:"is_error,omitempty"`

	NumTurns      int      `json:"num_turns,omitempty"`
	CostUSD       *float64 `json:"cost_usd,omitempty"`
	TotalCostUSD  *float64 `json:"total_cost_usd,omitempty"`
	DurationAPIMS int64    `json:"duration_api_ms,omitempty"`
	Result        string   `json:"result,omitempty"`
}

func (w wireEvent) event() Event {
	kind := EventKind(strings.ToLower(strings.TrimSpace(w.Type)))
	event := Event{Kind: kind}
	switch kind {
	case EventText:
		event.Text = w.Text
	case EventToolCall:
		call := &ToolCall{ID: w.ID, Name: w.Name, Input: w.Input}
		if call.Input == nil && strings.TrimSpace(w.Arguments) != "" {
			call.Input, call.InputErr = decodeArguments(w.Arguments)
		}
		event.ToolCall = call
	case EventToolResult:
		event.ToolResult = &ToolResult{CallID: w.CallID, Name: w.Name, Content: w.Content, IsError: w.IsError}
	case EventUsage:
		event.Usage = &Usage{NumTurns: w.NumTurns, CostUSD: firstCost(w.CostUSD, w.TotalCostUSD)}
	case EventTerminal:
		event.Terminal = &Terminal{
			APIDuration: time.Duration(w.DurationAPIMS) * time.Millisecond,
			CostUSD:     firstCost(w.TotalCostUSD, w.CostUSD),
			NumTurns:    w.NumTurns,
			Result:      w.Result,
		}
	}
	return event
}

// decodeArguments parses string-encoded tool arguments, repairing truncated
// or loosely quoted JSON before giving up.
func decodeArguments(raw string) (map[string]any, error) {
	var args map[string]any
	if err := jsonx.Unmarshal([]byte(raw), &args); err == nil {
		return args, nil
	}
	fixed, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("repair arguments: %w", err)
	}
	args = nil
	if err := jsonx.Unmarshal([]byte(fixed), &args); err != nil {
		return nil, fmt.Errorf("decode repaired arguments: %w", err)
	}
	return args, nil
}

func firstCost(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// TranscriptStream decodes a JSON-lines transcript, one event per line.
// Blank lines are skipped; a malformed line fails the stream.
type TranscriptStream struct {
	scanner *bufio.Scanner
	line    int
}

// NewTranscriptStream reads events from r.
func NewTranscriptStream(r io.Reader) *TranscriptStream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxTranscriptLine)
	return &TranscriptStream{scanner: scanner}
}

func (s *TranscriptStream) Recv(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Event{}, fmt.Errorf("transcript line %d: %w", s.line+1, err)
			}
			return Event{}, io.EOF
		}
		s.line++
		raw := strings.TrimSpace(s.scanner.Text())
		if raw == "" {
			continue
		}
		var wire wireEvent
		if err := jsonx.Unmarshal([]byte(raw), &wire); err != nil {
			return Event{}, fmt.Errorf("transcript line %d: %w", s.line, err)
		}
		if strings.TrimSpace(wire.Type) == "" {
			return Event{}, fmt.Errorf("transcript line %d: missing event type", s.line)
		}
		return wire.event(), nil
	}
}

// ChannelStream adapts a channel fed by an in-process driver. Closing the
// channel ends the stream.
type ChannelStream struct {
	events <-chan Event
}

// NewChannelStream wraps events.
func NewChannelStream(events <-chan Event) *ChannelStream {
	return &ChannelStream{events: events}
}

func (s *ChannelStream) Recv(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case event, ok := <-s.events:
		if !ok {
			return Event{}, io.EOF
		}
		return event, nil
	}
}

// JSONLSink writes each delivered result as one JSON line.
type JSONLSink struct {
	mu  sync.Mutex
	enc interface{ Encode(any) error }
}

// NewJSONLSink writes results to w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{enc: jsonx.NewEncoder(w)}
}

func (s *JSONLSink) Deliver(_ context.Context, result ToolResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(wireEvent{
		Type:    string(EventToolResult),
		CallID:  result.CallID,
		Name:    result.Name,
		Content: result.Content,
		IsError: result.IsError,
	})
}

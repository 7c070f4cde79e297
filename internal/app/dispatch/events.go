// Package dispatch drives one research session from the reasoning engine's
// event stream, routing tool calls to the pipeline components.
package dispatch

import (
	"context"
	"time"
)

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventText       EventKind = "text"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventUsage      EventKind = "usage"
	EventTerminal   EventKind = "result"
)

// Event is one message from the reasoning engine. Exactly one payload field
// matching Kind is set.
type Event struct {
	Kind       EventKind
	Text       string
	ToolCall   *ToolCall
	ToolResult *ToolResult
	Usage      *Usage
	Terminal   *Terminal
}

// ToolCall asks the engine to perform one named operation.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
	// InputErr is set when string-encoded arguments could not be decoded.
	InputErr error `json:"-"`
}

// ToolResult is the text answer for one tool call.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
	Error   error  `json:"-"`
}

// Usage is a running consumption report emitted between turns.
type Usage struct {
	NumTurns int      `json:"num_turns"`
	CostUSD  *float64 `json:"cost_usd,omitempty"`
}

// Terminal closes the stream with the reasoning engine's own accounting.
type Terminal struct {
	APIDuration time.Duration `json:"-"`
	CostUSD     *float64      `json:"cost_usd"`
	NumTurns    int           `json:"num_turns"`
	Result      string        `json:"result,omitempty"`
}

// EventStream yields events in order. Recv returns io.EOF once the stream is
// exhausted; any other error is a failure of the stream itself.
type EventStream interface {
	Recv(ctx context.Context) (Event, error)
}

// ResultSink hands tool results back to the reasoning engine.
type ResultSink interface {
	Deliver(ctx context.Context, result ToolResult) error
}

// ResultSinkFunc adapts a function to ResultSink.
type ResultSinkFunc func(ctx context.Context, result ToolResult) error

func (f ResultSinkFunc) Deliver(ctx context.Context, result ToolResult) error {
	return f(ctx, result)
}

package dispatch

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonx "scholar/internal/shared/json"
)

func TestTranscriptStreamDecodesEvents(t *testing.T) {
	transcript := strings.Join([]string{
		`{"type":"text","text":"Planning the search."}`,
		``,
		`{"type":"tool_call","id":"c1","name":"mcp__research__web_search","input":{"query":"q"}}`,
		`{"type":"tool_result","call_id":"c1","content":"ok"}`,
		`{"type":"usage","num_turns":2,"cost_usd":0.5}`,
		`{"type":"result","duration_api_ms":1500,"total_cost_usd":0.75,"num_turns":3}`,
	}, "\n")
	stream := NewTranscriptStream(strings.NewReader(transcript))
	ctx := context.Background()

	var events []Event
	for {
		event, err := stream.Recv(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		events = append(events, event)
	}
	require.Len(t, events, 5)
	assert.Equal(t, "Planning the search.", events[0].Text)
	assert.Equal(t, "mcp__research__web_search", events[1].ToolCall.Name)
	assert.Equal(t, "q", events[1].ToolCall.Input["query"])
	assert.Equal(t, "c1", events[2].ToolResult.CallID)
	assert.Equal(t, 2, events[3].Usage.NumTurns)
	assert.InDelta(t, 0.5, *events[3].Usage.CostUSD, 1e-9)

	terminal := events[4].Terminal
	require.NotNil(t, terminal)
	assert.Equal(t, 1500*time.Millisecond, terminal.APIDuration)
	assert.InDelta(t, 0.75, *terminal.CostUSD, 1e-9)
	assert.Equal(t, 3, terminal.NumTurns)
}

func TestTranscriptStreamRejectsMalformedLines(t *testing.T) {
	stream := NewTranscriptStream(strings.NewReader("{\"type\":\"text\",\"text\":\"a\"}\n{not json}\n"))
	_, err := stream.Recv(context.Background())
	require.NoError(t, err)
	_, err = stream.Recv(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	stream = NewTranscriptStream(strings.NewReader(`{"text":"no type"}`))
	_, err = stream.Recv(context.Background())
	require.Error(t, err)
}

func TestTranscriptStreamDecodesStringArguments(t *testing.T) {
	transcript := strings.Join([]string{
		`{"type":"tool_call","id":"a","name":"web_search","arguments":"{\"query\":\"sparse attention\",\"max_results\":3}"}`,
		`{"type":"tool_call","id":"b","name":"read_pdf","arguments":"{\"filename\":\"1706.03762.pdf\""}`,
	}, "\n")
	stream := NewTranscriptStream(strings.NewReader(transcript))

	event, err := stream.Recv(context.Background())
	require.NoError(t, err)
	require.NoError(t, event.ToolCall.InputErr)
	assert.Equal(t, "sparse attention", event.ToolCall.Input["query"])

	event, err = stream.Recv(context.Background())
	require.NoError(t, err)
	require.NoError(t, event.ToolCall.InputErr)
	assert.Equal(t, "1706.03762.pdf", event.ToolCall.Input["filename"])

	op, err := DecodeOp(*event.ToolCall)
	require.NoError(t, err)
	assert.Equal(t, OpReadDocument, op.Kind)
}

func TestChannelStream(t *testing.T) {
	events := make(chan Event, 1)
	stream := NewChannelStream(events)
	events <- Event{Kind: EventText, Text: "hi"}
	close(events)

	event, err := stream.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi", event.Text)
	_, err = stream.Recv(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewChannelStream(make(chan Event)).Recv(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONLSinkWritesResults(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)
	require.NoError(t, sink.Deliver(context.Background(), ToolResult{CallID: "c1", Name: "read_pdf", Content: "Error: x", IsError: true}))

	var decoded map[string]any
	require.NoError(t, jsonx.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "tool_result", decoded["type"])
	assert.Equal(t, "c1", decoded["call_id"])
	assert.Equal(t, true, decoded["is_error"])
}

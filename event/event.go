// Package event provides the observable hook surface emitted by the
// execution controller, invoker, and delegator. Events are fire-and-forget
// notifications: emission never blocks and is not part of the control
// contract.
package event

import (
	"time"

	ai "github.com/spetersoncode/reins"
)

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStart fires when a run begins.
	RunStart Type = "run_start"

	// RunEnd fires when a run completes.
	RunEnd Type = "run_end"

	// RunError fires when an unrecoverable error occurs.
	RunError Type = "run_error"
)

// Round lifecycle events
const (
	// RoundStart fires at the top of each controller round.
	RoundStart Type = "round_start"

	// RoundEnd fires when a round's model call and actions are complete.
	RoundEnd Type = "round_end"
)

// Tool call lifecycle events
const (
	// ToolCallStart fires before a tool invocation begins.
	ToolCallStart Type = "tool_call_start"

	// ToolCallEnd fires when a tool invocation completes successfully.
	ToolCallEnd Type = "tool_call_end"

	// ToolCallFailed fires when a tool invocation fails (validation,
	// timeout, or execution error).
	ToolCallFailed Type = "tool_call_failed"

	// ToolCallRetry fires once per observed retry attempt.
	ToolCallRetry Type = "tool_call_retry"
)

// Delegation lifecycle events
const (
	// AgentStart fires before a sub-agent delegation begins.
	AgentStart Type = "agent_start"

	// AgentEnd fires when a sub-agent delegation completes.
	AgentEnd Type = "agent_end"

	// AgentFailed fires when a sub-agent delegation fails.
	AgentFailed Type = "agent_failed"
)

// Streaming events
const (
	// StreamChunk fires for each incremental text chunk.
	StreamChunk Type = "stream_chunk"

	// StreamComplete fires when a streamed response completes.
	StreamComplete Type = "stream_complete"
)

// Event represents an observable occurrence during execution.
type Event struct {
	// Type identifies the kind of event.
	Type Type

	// Round is the current round number (1-indexed), 0 when not applicable.
	Round int

	// Action contains the action request for tool and agent events.
	Action *ai.ActionRequest

	// Result contains the result for ToolCallEnd/ToolCallFailed events.
	Result *ai.ToolResult

	// Response contains the model response for RoundEnd and RunEnd events.
	Response *ai.Response

	// Delta contains streaming content for StreamChunk events.
	Delta string

	// Attempt is the retry attempt number for ToolCallRetry events.
	Attempt int

	// Error contains the error for failure events.
	Error error

	// Message contains additional context (e.g., termination reason).
	Message string

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emit sends an event with timestamp to the channel (non-blocking).
// A nil channel is ignored.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
		// Channel full - don't block
	}
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 100)
}

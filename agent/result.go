package agent

import (
	"fmt"

	ai "github.com/spetersoncode/reins"
)

// TerminationReason explains why a run ended.
type TerminationReason string

const (
	// TerminationNoFurtherActions means the model answered without
	// requesting any action.
	TerminationNoFurtherActions TerminationReason = "no-further-actions"

	// TerminationMaxIterations means the iteration budget was exhausted.
	TerminationMaxIterations TerminationReason = "max-iterations"

	// TerminationMaxToolCalls means the total tool-call budget was
	// exhausted.
	TerminationMaxToolCalls TerminationReason = "max-tool-calls"

	// TerminationConsecutiveErrors means the consecutive-failure cap fired.
	TerminationConsecutiveErrors TerminationReason = "consecutive-errors"

	// TerminationDuplicateActions means dedup filtering removed every
	// requested action and the model was asked to answer directly.
	TerminationDuplicateActions TerminationReason = "duplicate-actions"

	// TerminationSynthesis means a delegated run produced its answer from
	// a synthesis round over collected results.
	TerminationSynthesis TerminationReason = "synthesis"

	// TerminationCancelled means the run's context was cancelled.
	TerminationCancelled TerminationReason = "cancelled"

	// TerminationError means an unrecoverable failure was converted into a
	// structured error result.
	TerminationError TerminationReason = "error"
)

// RunResult is the outcome of one run.
type RunResult struct {
	// Content is the final answer text.
	Content string
	// Usage accumulates token usage across every model call of the run,
	// including sub-agent calls.
	Usage ai.Usage
	// ToolsCalled lists the tool names invoked, in invocation order.
	ToolsCalled []string
	// AgentsCalled lists the sub-agent names delegated to, in order.
	AgentsCalled []string
	// Termination explains why the run ended.
	Termination TerminationReason
	// Err carries the structured error when Termination is
	// TerminationError, nil otherwise.
	Err *RunError
}

// RunError is the structured error result produced when a run fails in a
// way that cannot be folded into the conversation.
type RunError struct {
	Code    string
	Message string
	Cause   error
}

// Error returns the formatted message.
func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("agent: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("agent: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Cause
}

package agent

import (
	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/event"
	"github.com/spetersoncode/reins/history"
	"github.com/spetersoncode/reins/invoke"
)

// Mode selects the execution topology for a run. Selection is always
// caller-supplied, never inferred from the input.
type Mode string

const (
	// ModeSingleShot performs one model call with no action interpretation.
	ModeSingleShot Mode = "single-shot"
	// ModeToolLoop iterates model calls and tool invocations.
	ModeToolLoop Mode = "tool-loop"
	// ModeDelegated allows the model to hand tasks to sub-agents.
	ModeDelegated Mode = "delegated"
)

// Budget is the set of caps bounding one run. It is immutable per run.
type Budget struct {
	// MaxIterations caps the number of rounds.
	MaxIterations int
	// MaxToolCalls caps the total number of tool invocations.
	MaxToolCalls int
	// MaxConsecutiveErrors caps consecutive tool/agent failures before a
	// forced terminal round.
	MaxConsecutiveErrors int
}

// DefaultBudget returns the default run budget.
func DefaultBudget() Budget {
	return Budget{
		MaxIterations:        10,
		MaxToolCalls:         20,
		MaxConsecutiveErrors: 3,
	}
}

// Options contains configuration for one run.
type Options struct {
	// Mode selects the execution topology. Default is ModeToolLoop.
	Mode Mode

	// Budget bounds the run. Default is DefaultBudget.
	Budget Budget

	// SystemPrompt seeds the conversation's system message.
	SystemPrompt string

	// History is the caller-provided conversation history. When nil a
	// fresh bounded history is created for the run and discarded at run
	// end.
	History *history.History

	// ParallelActions enables concurrent execution of independent tool
	// invocations produced in the same round. Default is true.
	ParallelActions bool

	// Streaming makes single-shot runs consume the provider's stream,
	// emitting StreamChunk and StreamComplete events as chunks arrive.
	// Ignored when the provider does not declare streaming capability.
	Streaming bool

	// Events receives fire-and-forget lifecycle notifications.
	Events chan<- event.Event

	// ResponseCache optionally caches whole responses across runs, keyed
	// by the run input. Independent of per-tool result caching.
	ResponseCache *invoke.Cache

	// ChatOptions are passed through to the underlying ChatProvider.
	ChatOptions []ai.Option
}

// Option is a functional option for configuring a run.
type Option func(*Options)

// WithMode selects the execution topology.
func WithMode(m Mode) Option {
	return func(o *Options) {
		o.Mode = m
	}
}

// WithBudget sets the run budget.
func WithBudget(b Budget) Option {
	return func(o *Options) {
		o.Budget = b
	}
}

// WithSystemPrompt seeds the conversation's system message.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

// WithHistory supplies a caller-owned conversation history, persisted or
// reused between runs by the caller.
func WithHistory(h *history.History) Option {
	return func(o *Options) {
		o.History = h
	}
}

// WithParallelActions enables or disables concurrent tool execution within
// a round. Default is true.
func WithParallelActions(enabled bool) Option {
	return func(o *Options) {
		o.ParallelActions = enabled
	}
}

// WithStreaming streams the model response on single-shot runs, surfacing
// incremental chunks on the event channel.
func WithStreaming(enabled bool) Option {
	return func(o *Options) {
		o.Streaming = enabled
	}
}

// WithEvents sets the channel receiving lifecycle notifications.
func WithEvents(ch chan<- event.Event) Option {
	return func(o *Options) {
		o.Events = ch
	}
}

// WithResponseCache enables response-level caching across runs. The cache
// is caller-owned.
func WithResponseCache(c *invoke.Cache) Option {
	return func(o *Options) {
		o.ResponseCache = c
	}
}

// WithChatOptions passes options through to the ChatProvider on every
// model call of the run.
func WithChatOptions(opts ...ai.Option) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, opts...)
	}
}

// WithModel is a convenience option to set the model for chat calls.
func WithModel(model string) Option {
	return func(o *Options) {
		o.ChatOptions = append(o.ChatOptions, ai.WithModel(model))
	}
}

// ApplyOptions applies functional options to an Options struct with defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{
		Mode:            ModeToolLoop,
		Budget:          DefaultBudget(),
		ParallelActions: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

package invoke

import (
	"context"
	"fmt"
	"time"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/event"
	"github.com/spetersoncode/reins/retry"
)

// Invoker runs single tool calls through the validate-cache-execute
// pipeline. It never returns a Go error for a failed call: every failure is
// folded into a ToolResult with IsError set, so the controller can surface
// it to the model and keep the loop alive.
type Invoker struct {
	registry *Registry
	cache    *Cache
	events   chan<- event.Event
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithCache sets the result cache. The cache is caller-owned and may be
// shared across runs; without one, per-tool caching is disabled.
func WithCache(c *Cache) Option {
	return func(inv *Invoker) {
		inv.cache = c
	}
}

// WithEvents sets the channel receiving tool-call lifecycle notifications.
func WithEvents(ch chan<- event.Event) Option {
	return func(inv *Invoker) {
		inv.events = ch
	}
}

// New creates an Invoker over the given registry.
func New(registry *Registry, opts ...Option) *Invoker {
	inv := &Invoker{registry: registry}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Registry returns the underlying tool registry.
func (inv *Invoker) Registry() *Registry {
	return inv.registry
}

// Invoke executes one tool action. Steps, in order: argument validation
// (with a second attempt against the no-arguments shape when the model
// supplied an empty map), cache lookup, execution raced against the
// per-tool timeout with bounded retry for retryable tools, and cache store
// on success.
func (inv *Invoker) Invoke(ctx context.Context, act ai.ActionRequest) ai.ToolResult {
	event.Emit(inv.events, event.Event{Type: event.ToolCallStart, Action: &act})

	if err := ctx.Err(); err != nil {
		return inv.failure(act, err)
	}

	def, ok := inv.registry.Get(act.Name)
	if !ok {
		return inv.failure(act, &ErrToolNotFound{Name: act.Name})
	}

	args := act.Arguments
	if args == nil {
		args = map[string]any{}
	}

	if err := validateArgs(act.Name, def.Tool.Parameters, args); err != nil {
		// Models routinely emit {} for zero-argument tools; retry the
		// validation against an explicit no-arguments value before
		// giving up.
		if len(args) != 0 {
			return inv.failure(act, err)
		}
		if err := validateNoArgs(act.Name, def.Tool.Parameters); err != nil {
			return inv.failure(act, err)
		}
	}

	cacheKey := act.Name + ":" + act.ArgumentsJSON()
	if inv.cache != nil && def.CacheTTL > 0 {
		if value, hit := inv.cache.Get(cacheKey); hit {
			result := ai.ToolResult{ToolCallID: act.ID, Content: value}
			event.Emit(inv.events, event.Event{Type: event.ToolCallEnd, Action: &act, Result: &result})
			return result
		}
	}

	content, err := inv.execute(ctx, def, act, args)
	if err != nil {
		return inv.failure(act, err)
	}

	if inv.cache != nil && def.CacheTTL > 0 {
		inv.cache.Set(cacheKey, content, def.CacheTTL)
	}

	result := ai.ToolResult{ToolCallID: act.ID, Content: content}
	event.Emit(inv.events, event.Event{Type: event.ToolCallEnd, Action: &act, Result: &result})
	return result
}

// execute runs the handler, racing each attempt against the per-tool
// timeout. Retryable tools get bounded exponential backoff with a per
// attempt notification.
func (inv *Invoker) execute(ctx context.Context, def Definition, act ai.ActionRequest, args map[string]any) (string, error) {
	attempt := func() (string, error) {
		content, err := inv.runWithTimeout(ctx, def, args)
		if err != nil && def.Retryable && !ai.IsTransient(err) {
			// Retryable tools retry every failure, not just transient
			// ones.
			err = ai.NewTransientError("tool execution failed", 0, err)
		}
		return content, err
	}

	if !def.Retryable {
		return attempt()
	}

	cfg := def.Retry
	if cfg.MaxAttempts == 0 {
		cfg = retry.DefaultConfig()
	}
	observe := func(n int, err error, delay time.Duration) {
		event.Emit(inv.events, event.Event{
			Type:    event.ToolCallRetry,
			Action:  &act,
			Attempt: n,
			Error:   err,
		})
	}
	return retry.DoObserved(ctx, cfg, observe, attempt)
}

// runWithTimeout races one handler execution against the per-tool timeout.
// A timed-out call is not forcibly interrupted beyond context cancellation;
// its result is discarded.
func (inv *Invoker) runWithTimeout(ctx context.Context, def Definition, args map[string]any) (string, error) {
	execCtx := ctx
	var cancel context.CancelFunc
	if def.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	type outcome struct {
		content string
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", def.Tool.Name, rec)}
			}
		}()
		content, err := def.Handler(execCtx, args)
		done <- outcome{content: content, err: err}
	}()

	select {
	case out := <-done:
		return out.content, out.err
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ErrToolTimeout{Name: def.Tool.Name}
	}
}

// failure folds an error into a tagged error result.
func (inv *Invoker) failure(act ai.ActionRequest, err error) ai.ToolResult {
	result := ai.ToolResult{
		ToolCallID: act.ID,
		Content:    err.Error(),
		IsError:    true,
	}
	event.Emit(inv.events, event.Event{
		Type:   event.ToolCallFailed,
		Action: &act,
		Result: &result,
		Error:  err,
	})
	return result
}

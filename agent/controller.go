package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/event"
	"github.com/spetersoncode/reins/history"
	"github.com/spetersoncode/reins/invoke"
)

// responseCacheTTL bounds entries in the optional whole-response cache.
const responseCacheTTL = 15 * time.Minute

// Controller drives model/action rounds against a ChatProvider. It owns no
// per-run state; a single Controller is safe for concurrent runs.
type Controller struct {
	provider  ai.ChatProvider
	tools     *invoke.Registry
	toolCache *invoke.Cache
	agents    *Registry
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithToolRegistry attaches the registry of invocable tools.
func WithToolRegistry(reg *invoke.Registry) ControllerOption {
	return func(c *Controller) {
		c.tools = reg
	}
}

// WithToolCache attaches a shared tool-result cache. The cache persists
// across runs so repeated deterministic tool calls are served without
// re-execution.
func WithToolCache(cache *invoke.Cache) ControllerOption {
	return func(c *Controller) {
		c.toolCache = cache
	}
}

// WithAgentRegistry attaches the registry of delegable sub-agents.
func WithAgentRegistry(reg *Registry) ControllerOption {
	return func(c *Controller) {
		c.agents = reg
	}
}

// New creates a Controller bound to the given provider.
func New(provider ai.ChatProvider, opts ...ControllerOption) *Controller {
	c := &Controller{provider: provider}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one request through the configured mode and returns its
// outcome. The error return covers setup problems only (such as a missing
// provider); everything that goes wrong mid-run is folded into RunResult.Err
// so partial progress survives. Tool handler panics are contained earlier,
// inside the invoker, and surface as error results in the conversation.
func (c *Controller) Run(ctx context.Context, input string, opts ...Option) (result *RunResult, err error) {
	if c.provider == nil {
		return nil, ErrNoProvider
	}
	options := ApplyOptions(opts...)

	defer func() {
		if rec := recover(); rec != nil {
			result = &RunResult{
				Termination: TerminationError,
				Err: &RunError{
					Code:    "panic",
					Message: fmt.Sprintf("run panicked: %v", rec),
				},
			}
			err = nil
			event.Emit(options.Events, event.Event{Type: event.RunError, Error: fmt.Errorf("%v", rec)})
		}
	}()

	if options.ResponseCache != nil {
		if cached, ok := options.ResponseCache.Get(responseKey(options.Mode, input)); ok {
			// Cached runs keep the same observable lifecycle as live ones.
			event.Emit(options.Events, event.Event{Type: event.RunStart, Message: input})
			event.Emit(options.Events, event.Event{Type: event.RunEnd, Response: &ai.Response{Content: cached}})
			return &RunResult{Content: cached, Termination: TerminationNoFurtherActions}, nil
		}
	}

	r := c.newRun(input, options)
	event.Emit(options.Events, event.Event{Type: event.RunStart, Message: input})

	switch options.Mode {
	case ModeSingleShot:
		result = r.singleShot(ctx)
	case ModeDelegated:
		result = r.delegated(ctx)
	default:
		result = r.toolLoop(ctx)
	}

	if result.Err != nil {
		event.Emit(options.Events, event.Event{Type: event.RunError, Error: result.Err})
	} else {
		event.Emit(options.Events, event.Event{Type: event.RunEnd, Response: &ai.Response{Content: result.Content, Usage: result.Usage}})
		if options.ResponseCache != nil && result.Content != "" {
			options.ResponseCache.Set(responseKey(options.Mode, input), result.Content, responseCacheTTL)
		}
	}
	return result, nil
}

func responseKey(mode Mode, input string) string {
	return string(mode) + ":" + input
}

// run holds the mutable state of a single Run invocation.
type run struct {
	c     *Controller
	opts  *Options
	input string

	hist    *history.History
	invoker *invoke.Invoker
	deleg   *Delegator

	seen         map[string]struct{}
	consecErrs   int
	toolCalls    int
	usage        ai.Usage
	toolsCalled  []string
	agentsCalled []string

	// lastContent is the most recent non-empty model text, used as the
	// best-effort answer when a budget or error forces early termination.
	lastContent string
}

func (c *Controller) newRun(input string, opts *Options) *run {
	r := &run{
		c:     c,
		opts:  opts,
		input: input,
		seen:  make(map[string]struct{}),
	}

	var invOpts []invoke.Option
	if c.toolCache != nil {
		invOpts = append(invOpts, invoke.WithCache(c.toolCache))
	}
	if opts.Events != nil {
		invOpts = append(invOpts, invoke.WithEvents(opts.Events))
	}
	reg := c.tools
	if reg == nil {
		reg = invoke.NewRegistry()
	}
	r.invoker = invoke.New(reg, invOpts...)
	r.deleg = NewDelegator(c.provider, opts.Events)

	r.hist = opts.History
	if r.hist == nil {
		r.hist = history.New()
	}
	if system := r.systemPrompt(); system != "" {
		r.hist.Append(ai.Message{Role: ai.RoleSystem, Content: system})
	}
	r.hist.Append(ai.Message{Role: ai.RoleUser, Content: input})
	return r
}

// systemPrompt assembles the caller prompt plus any mode-specific calling
// conventions the backend needs spelled out in text.
func (r *run) systemPrompt() string {
	system := r.opts.SystemPrompt
	switch r.opts.Mode {
	case ModeDelegated:
		var agents []*SubAgent
		if r.c.agents != nil {
			agents = r.c.agents.All()
		}
		instr := delegationInstructions(agents, r.toolset())
		if system != "" {
			return system + "\n\n" + instr
		}
		return instr
	case ModeToolLoop:
		if len(r.toolset()) > 0 && !r.c.provider.Capabilities().NativeTools {
			instr := toolInstructions(r.toolset())
			if system != "" {
				return system + "\n\n" + instr
			}
			return instr
		}
	}
	return system
}

func (r *run) toolset() []ai.Tool {
	if r.c.tools == nil {
		return nil
	}
	return r.c.tools.Tools()
}

// chatTools returns the per-request options advertising native tools, when
// the backend supports them and any are registered.
func (r *run) chatTools() []ai.Option {
	tools := r.toolset()
	if len(tools) == 0 || !r.c.provider.Capabilities().NativeTools {
		return nil
	}
	return []ai.Option{ai.WithTools(tools)}
}

func (r *run) chat(ctx context.Context, extra ...ai.Option) (*ai.Response, error) {
	opts := make([]ai.Option, 0, len(r.opts.ChatOptions)+len(extra))
	opts = append(opts, r.opts.ChatOptions...)
	opts = append(opts, extra...)

	resp, err := r.c.provider.Chat(ctx, r.hist.Messages(), opts...)
	if err != nil {
		return nil, err
	}
	r.usage.Add(resp.Usage)
	if resp.Content != "" {
		r.lastContent = resp.Content
	}
	return resp, nil
}

func (r *run) singleShot(ctx context.Context) *RunResult {
	if r.opts.Streaming && r.c.provider.Capabilities().Streaming {
		return r.singleShotStream(ctx)
	}
	resp, err := r.chat(ctx)
	if err != nil {
		return r.failed("chat", err)
	}
	r.hist.Append(ai.Message{Role: ai.RoleAssistant, Content: resp.Content})
	return r.done(resp.Content, TerminationNoFurtherActions)
}

// singleShotStream consumes the provider's stream, surfacing each chunk as
// a StreamChunk event and the terminal StreamComplete once drained.
func (r *run) singleShotStream(ctx context.Context) *RunResult {
	ch, err := r.c.provider.ChatStream(ctx, r.hist.Messages(), r.opts.ChatOptions...)
	if err != nil {
		return r.failed("chat", err)
	}

	var b strings.Builder
	var final *ai.Response
	for ev := range ch {
		if ev.Err != nil {
			return r.failed("stream", ev.Err)
		}
		if ev.Delta != "" {
			b.WriteString(ev.Delta)
			event.Emit(r.opts.Events, event.Event{Type: event.StreamChunk, Delta: ev.Delta})
		}
		if ev.Done && ev.Response != nil {
			final = ev.Response
		}
	}

	content := b.String()
	if final != nil {
		if final.Content != "" {
			content = final.Content
		}
		r.usage.Add(final.Usage)
	}
	event.Emit(r.opts.Events, event.Event{Type: event.StreamComplete, Response: final})

	if content != "" {
		r.lastContent = content
	}
	r.hist.Append(ai.Message{Role: ai.RoleAssistant, Content: content})
	return r.done(content, TerminationNoFurtherActions)
}

func (r *run) toolLoop(ctx context.Context) *RunResult {
	budget := r.opts.Budget
	for round := 1; round <= budget.MaxIterations; round++ {
		if ctx.Err() != nil {
			return r.done(r.lastContent, TerminationCancelled)
		}
		event.Emit(r.opts.Events, event.Event{Type: event.RoundStart, Round: round})

		if r.consecErrs >= budget.MaxConsecutiveErrors {
			return r.finalRound(ctx, TerminationConsecutiveErrors)
		}

		resp, err := r.chat(ctx, r.chatTools()...)
		if err != nil {
			return r.failed("chat", err)
		}

		actions := actionsFromResponse(r.c.provider, resp)
		if len(actions) == 0 {
			r.hist.Append(ai.Message{Role: ai.RoleAssistant, Content: resp.Content})
			return r.done(resp.Content, TerminationNoFurtherActions)
		}

		fresh := r.filterSeen(actions)
		if len(fresh) == 0 {
			return r.finalRound(ctx, TerminationDuplicateActions)
		}

		r.hist.Append(assistantActionMessage(resp, fresh))
		results := r.executeActions(ctx, fresh)
		r.hist.Append(ai.NewToolResultMessage(results...))
		r.trackFailures(results)

		event.Emit(r.opts.Events, event.Event{Type: event.RoundEnd, Round: round, Response: resp})

		if r.toolCalls >= budget.MaxToolCalls {
			return r.done(r.lastContent, TerminationMaxToolCalls)
		}
	}
	return r.finalRound(ctx, TerminationMaxIterations)
}

func (r *run) delegated(ctx context.Context) *RunResult {
	budget := r.opts.Budget
	nudged := false
	var collected []string

	for round := 1; round <= budget.MaxIterations; round++ {
		if ctx.Err() != nil {
			return r.done(r.lastContent, TerminationCancelled)
		}
		event.Emit(r.opts.Events, event.Event{Type: event.RoundStart, Round: round})

		if r.consecErrs >= budget.MaxConsecutiveErrors {
			return r.finalRound(ctx, TerminationConsecutiveErrors)
		}

		resp, err := r.chat(ctx)
		if err != nil {
			return r.failed("chat", err)
		}

		actions := actionsFromResponse(r.c.provider, resp)
		if len(actions) == 0 {
			// A plain reply. Conversational inputs and agent-less
			// controllers take it as the answer; anything else gets
			// one corrective nudge toward delegation.
			if r.c.agents == nil || r.c.agents.Len() == 0 || isConversational(r.input) || nudged {
				r.hist.Append(ai.Message{Role: ai.RoleAssistant, Content: resp.Content})
				return r.done(resp.Content, TerminationNoFurtherActions)
			}
			nudged = true
			r.hist.Append(ai.Message{Role: ai.RoleAssistant, Content: resp.Content})
			r.hist.Append(ai.Message{Role: ai.RoleUser, Content: delegationNudge})
			continue
		}

		fresh := r.filterSeen(actions)
		if len(fresh) == 0 {
			if len(collected) > 0 {
				return r.synthesize(ctx, collected)
			}
			return r.finalRound(ctx, TerminationDuplicateActions)
		}

		r.hist.Append(assistantActionMessage(resp, fresh))
		results := r.executeDelegated(ctx, fresh)
		for _, res := range results {
			collected = append(collected, res.Content)
		}
		r.hist.Append(ai.NewToolResultMessage(results...))
		r.trackFailures(results)

		event.Emit(r.opts.Events, event.Event{Type: event.RoundEnd, Round: round, Response: resp})

		// One round of work is enough; fold everything into a single
		// synthesized answer rather than looping further.
		return r.synthesize(ctx, collected)
	}
	return r.finalRound(ctx, TerminationMaxIterations)
}

// filterSeen drops actions already executed this run and records the rest.
func (r *run) filterSeen(actions []ai.ActionRequest) []ai.ActionRequest {
	fresh := make([]ai.ActionRequest, 0, len(actions))
	for _, act := range actions {
		key := act.DedupKey()
		if _, dup := r.seen[key]; dup {
			continue
		}
		r.seen[key] = struct{}{}
		fresh = append(fresh, act)
	}
	return fresh
}

// executeActions runs tool actions, in parallel when enabled. Result order
// always matches action order regardless of completion order.
func (r *run) executeActions(ctx context.Context, actions []ai.ActionRequest) []ai.ToolResult {
	results := make([]ai.ToolResult, len(actions))
	if r.opts.ParallelActions && len(actions) > 1 {
		var wg sync.WaitGroup
		for i, act := range actions {
			wg.Add(1)
			go func(i int, act ai.ActionRequest) {
				defer wg.Done()
				results[i] = r.invoker.Invoke(ctx, act)
			}(i, act)
		}
		wg.Wait()
	} else {
		for i, act := range actions {
			results[i] = r.invoker.Invoke(ctx, act)
		}
	}
	for _, act := range actions {
		r.toolsCalled = append(r.toolsCalled, act.Name)
	}
	r.toolCalls += len(actions)
	return results
}

// executeDelegated routes each action by kind: agent actions go through the
// Delegator, tool actions through the invoker. Delegation runs sequentially
// because each sub-agent holds its own model conversation.
func (r *run) executeDelegated(ctx context.Context, actions []ai.ActionRequest) []ai.ToolResult {
	results := make([]ai.ToolResult, 0, len(actions))
	for _, act := range actions {
		if act.Kind == ai.ActionAgent {
			content, usage, failed := r.deleg.Delegate(ctx, act, r.c.agents)
			r.usage.Add(usage)
			if sub := r.c.agents.Resolve(act.Name); sub != nil {
				r.agentsCalled = append(r.agentsCalled, sub.Name)
			}
			results = append(results, ai.ToolResult{
				ToolCallID: act.ID,
				Content:    content,
				IsError:    failed,
			})
			continue
		}
		results = append(results, r.invoker.Invoke(ctx, act))
		r.toolsCalled = append(r.toolsCalled, act.Name)
		r.toolCalls++
	}
	return results
}

// trackFailures advances or resets the consecutive-error counter. Any
// success in a round resets it.
func (r *run) trackFailures(results []ai.ToolResult) {
	for _, res := range results {
		if res.IsError {
			r.consecErrs++
		} else {
			r.consecErrs = 0
		}
	}
}

// finalRound asks the model for a best-effort answer with no further
// actions permitted, then terminates with the given reason.
func (r *run) finalRound(ctx context.Context, reason TerminationReason) *RunResult {
	r.hist.Append(ai.Message{Role: ai.RoleUser, Content: finalAnswerInstruction})
	resp, err := r.chat(ctx)
	if err != nil {
		return r.done(r.lastContent, reason)
	}
	r.hist.Append(ai.Message{Role: ai.RoleAssistant, Content: resp.Content})
	return r.done(resp.Content, reason)
}

// synthesize folds collected delegation results into one final answer.
func (r *run) synthesize(ctx context.Context, collected []string) *RunResult {
	r.hist.Append(ai.Message{Role: ai.RoleUser, Content: synthesisInstruction(collected)})
	resp, err := r.chat(ctx)
	if err != nil {
		return r.done(r.lastContent, TerminationSynthesis)
	}
	r.hist.Append(ai.Message{Role: ai.RoleAssistant, Content: resp.Content})
	return r.done(resp.Content, TerminationSynthesis)
}

func (r *run) done(content string, reason TerminationReason) *RunResult {
	if content == "" {
		content = r.lastContent
	}
	return &RunResult{
		Content:      content,
		Usage:        r.usage,
		ToolsCalled:  r.toolsCalled,
		AgentsCalled: r.agentsCalled,
		Termination:  reason,
	}
}

// failed wraps a provider error into a terminal result carrying whatever
// content the run produced so far.
func (r *run) failed(code string, err error) *RunResult {
	return &RunResult{
		Content:      r.lastContent,
		Usage:        r.usage,
		ToolsCalled:  r.toolsCalled,
		AgentsCalled: r.agentsCalled,
		Termination:  TerminationError,
		Err: &RunError{
			Code:    code,
			Message: err.Error(),
			Cause:   err,
		},
	}
}

// assistantActionMessage records the model turn that requested actions,
// preserving native call hints so backends can correlate results.
func assistantActionMessage(resp *ai.Response, actions []ai.ActionRequest) ai.Message {
	msg := ai.Message{Role: ai.RoleAssistant, Content: resp.Content}
	for _, act := range actions {
		msg.ToolCalls = append(msg.ToolCalls, ai.ToolCall{
			ID:        act.ID,
			Name:      act.Name,
			Arguments: act.ArgumentsJSON(),
		})
	}
	return msg
}

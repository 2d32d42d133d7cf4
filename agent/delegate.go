package agent

import (
	"context"
	"fmt"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/event"
	"github.com/spetersoncode/reins/invoke"
	"github.com/spetersoncode/reins/parse"
)

// Delegator resolves delegation requests against a sub-agent registry and
// runs each delegated task as an isolated sub-conversation. Failures are
// folded into a result string, never propagated to the parent run.
type Delegator struct {
	// parent is the fallback provider for agents without their own.
	parent ai.ChatProvider
	events chan<- event.Event
}

// NewDelegator creates a Delegator. The parent provider serves sub-agents
// that do not declare their own.
func NewDelegator(parent ai.ChatProvider, events chan<- event.Event) *Delegator {
	return &Delegator{parent: parent, events: events}
}

// Delegate runs one delegation request and returns the sub-agent's answer
// together with the usage its model calls consumed. The failed flag is set
// when the result string describes an error rather than an answer.
func (d *Delegator) Delegate(ctx context.Context, act ai.ActionRequest, reg *Registry) (content string, usage ai.Usage, failed bool) {
	event.Emit(d.events, event.Event{Type: event.AgentStart, Action: &act})

	sub := reg.Resolve(act.Name)
	if sub == nil {
		err := fmt.Errorf("agent: no sub-agents registered, cannot delegate %q", act.Name)
		event.Emit(d.events, event.Event{Type: event.AgentFailed, Action: &act, Error: err})
		return err.Error(), ai.Usage{}, true
	}

	content, usage, err := d.runSubAgent(ctx, sub, act.Task)
	if err != nil {
		event.Emit(d.events, event.Event{Type: event.AgentFailed, Action: &act, Error: err})
		return fmt.Sprintf("delegation to %s failed: %v", sub.Name, err), usage, true
	}

	event.Emit(d.events, event.Event{Type: event.AgentEnd, Action: &act})
	return content, usage, false
}

// runSubAgent builds the isolated sub-conversation (the agent's own system
// prompt plus the task as the sole user turn), makes one model call, and
// runs at most one tool-execution round when the response requests tools.
func (d *Delegator) runSubAgent(ctx context.Context, sub *SubAgent, task string) (string, ai.Usage, error) {
	provider := sub.Provider
	if provider == nil {
		provider = d.parent
	}
	if provider == nil {
		return "", ai.Usage{}, ErrNoProvider
	}

	system := sub.SystemPrompt
	var tools []ai.Tool
	if sub.Tools != nil {
		tools = sub.Tools.Tools()
		if !provider.Capabilities().NativeTools && len(tools) > 0 {
			if system != "" {
				system += "\n\n"
			}
			system += toolInstructions(tools)
		}
	}

	var messages []ai.Message
	if system != "" {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: system})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: task})

	chatOpts := sub.ChatOptions
	if provider.Capabilities().NativeTools && len(tools) > 0 {
		chatOpts = append(chatOpts[:len(chatOpts):len(chatOpts)], ai.WithTools(tools))
	}

	var usage ai.Usage
	resp, err := provider.Chat(ctx, messages, chatOpts...)
	if err != nil {
		return "", usage, err
	}
	usage.Add(resp.Usage)

	actions := actionsFromResponse(provider, resp)
	if len(actions) == 0 || sub.Tools == nil {
		return resp.Content, usage, nil
	}

	// One tool round, then one closing call.
	invoker := invoke.New(sub.Tools, invoke.WithEvents(d.events))
	var results []ai.ToolResult
	var hints []ai.ToolCall
	for _, act := range actions {
		if act.Kind != ai.ActionTool {
			continue
		}
		hints = append(hints, ai.ToolCall{ID: act.ID, Name: act.Name, Arguments: act.ArgumentsJSON()})
		results = append(results, invoker.Invoke(ctx, act))
	}
	if len(results) == 0 {
		return resp.Content, usage, nil
	}

	messages = append(messages,
		ai.Message{Role: ai.RoleAssistant, Content: resp.Content, ToolCalls: hints},
		ai.NewToolResultMessage(results...),
	)

	final, err := provider.Chat(ctx, messages, sub.ChatOptions...)
	if err != nil {
		return "", usage, err
	}
	usage.Add(final.Usage)
	return final.Content, usage, nil
}

// actionsFromResponse prefers the backend's native action hints and falls
// back to the parser cascade on the response text.
func actionsFromResponse(provider ai.ChatProvider, resp *ai.Response) []ai.ActionRequest {
	if provider.Capabilities().NativeTools && len(resp.ToolCalls) > 0 {
		actions := make([]ai.ActionRequest, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			actions = append(actions, tc.ActionRequest())
		}
		return actions
	}
	return parse.Parse(resp.Content)
}

package reins

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// ActionKind discriminates the two kinds of action request a model can make.
type ActionKind string

const (
	// ActionTool requests invocation of a registered tool.
	ActionTool ActionKind = "tool"
	// ActionAgent requests delegation of a task to a named sub-agent.
	ActionAgent ActionKind = "agent"
)

// ActionRequest is a structured instruction decoded from model output,
// requesting either a tool invocation or a sub-agent delegation. All accepted
// encoding synonyms (name/tool, arguments/params, tag variants) are
// normalized into this one shape before any downstream code sees it.
type ActionRequest struct {
	// ID correlates the request with its result message. Generated when
	// the source encoding omits one.
	ID string `json:"id"`
	// Kind discriminates the union: ActionTool or ActionAgent.
	Kind ActionKind `json:"kind"`
	// Name is the tool name (ActionTool) or sub-agent name (ActionAgent).
	Name string `json:"name"`
	// Arguments holds the tool arguments. Nil is treated as an empty map.
	// Only meaningful for ActionTool.
	Arguments map[string]any `json:"arguments,omitempty"`
	// Task is the delegated task text. Only meaningful for ActionAgent.
	Task string `json:"task,omitempty"`
}

// GenerateActionID creates a unique correlation identifier.
func GenerateActionID() string {
	return "call-" + uuid.New().String()
}

// NewToolAction creates a tool action request with a fresh correlation id.
func NewToolAction(name string, args map[string]any) ActionRequest {
	return ActionRequest{
		ID:        GenerateActionID(),
		Kind:      ActionTool,
		Name:      name,
		Arguments: args,
	}
}

// NewAgentAction creates a delegation request with a fresh correlation id.
func NewAgentAction(agentName, task string) ActionRequest {
	return ActionRequest{
		ID:   GenerateActionID(),
		Kind: ActionAgent,
		Name: agentName,
		Task: task,
	}
}

// ArgumentsJSON returns the arguments serialized as canonical JSON.
// Map keys are emitted in sorted order, so equal argument maps always
// serialize identically. Returns "{}" for nil arguments.
func (a ActionRequest) ArgumentsJSON() string {
	if len(a.Arguments) == 0 {
		return "{}"
	}
	// encoding/json sorts map keys, which makes the output canonical.
	raw, err := json.Marshal(a.Arguments)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// DedupKey returns the canonical identity of the request, used to suppress
// repeated identical invocations within one run. Two requests with the same
// name and equivalent arguments produce the same key regardless of the
// encoding they were decoded from.
func (a ActionRequest) DedupKey() string {
	var b strings.Builder
	b.WriteString(string(a.Kind))
	b.WriteByte(':')
	b.WriteString(a.Name)
	b.WriteByte(':')
	if a.Kind == ActionAgent {
		b.WriteString(strings.TrimSpace(a.Task))
	} else {
		b.WriteString(a.ArgumentsJSON())
	}
	return b.String()
}

// ToolCall represents a native action hint from a model backend.
type ToolCall struct {
	// ID is a unique identifier for this tool call (used to match results).
	ID string `json:"id"`
	// Name is the name of the tool to invoke.
	Name string `json:"name"`
	// Arguments is a JSON string containing the arguments to pass.
	Arguments string `json:"arguments"`
}

// ActionRequest converts a native tool call hint into the canonical
// ActionRequest shape. Malformed argument payloads degrade to an empty map
// rather than failing; the invoker's validation surfaces the problem to the
// model as a tool-result error.
func (tc ToolCall) ActionRequest() ActionRequest {
	var args map[string]any
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			args = nil
		}
	}
	id := tc.ID
	if id == "" {
		id = GenerateActionID()
	}
	return ActionRequest{
		ID:        id,
		Kind:      ActionTool,
		Name:      tc.Name,
		Arguments: args,
	}
}

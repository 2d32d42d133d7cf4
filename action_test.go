package reins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionRequestDedupKey(t *testing.T) {
	t.Run("same arguments same key", func(t *testing.T) {
		a := NewToolAction("calculator", map[string]any{"a": 1.0, "b": 2.0})
		b := NewToolAction("calculator", map[string]any{"b": 2.0, "a": 1.0})

		assert.Equal(t, a.DedupKey(), b.DedupKey())
	})

	t.Run("different arguments different key", func(t *testing.T) {
		a := NewToolAction("calculator", map[string]any{"a": 1.0})
		b := NewToolAction("calculator", map[string]any{"a": 2.0})

		assert.NotEqual(t, a.DedupKey(), b.DedupKey())
	})

	t.Run("nil arguments match empty map", func(t *testing.T) {
		a := NewToolAction("ping", nil)
		b := NewToolAction("ping", map[string]any{})

		assert.Equal(t, a.DedupKey(), b.DedupKey())
	})

	t.Run("agent key uses trimmed task", func(t *testing.T) {
		a := NewAgentAction("researcher", "find facts")
		b := NewAgentAction("researcher", "  find facts  ")
		c := NewAgentAction("researcher", "find other facts")

		assert.Equal(t, a.DedupKey(), b.DedupKey())
		assert.NotEqual(t, a.DedupKey(), c.DedupKey())
	})

	t.Run("kinds never collide", func(t *testing.T) {
		tool := NewToolAction("helper", nil)
		agent := NewAgentAction("helper", "{}")

		assert.NotEqual(t, tool.DedupKey(), agent.DedupKey())
	})
}

func TestToolCallActionRequest(t *testing.T) {
	t.Run("parses arguments", func(t *testing.T) {
		tc := ToolCall{ID: "tc1", Name: "calculator", Arguments: `{"a": 5}`}

		act := tc.ActionRequest()

		assert.Equal(t, "tc1", act.ID)
		assert.Equal(t, ActionTool, act.Kind)
		assert.Equal(t, map[string]any{"a": 5.0}, act.Arguments)
	})

	t.Run("malformed arguments degrade to empty", func(t *testing.T) {
		tc := ToolCall{ID: "tc1", Name: "calculator", Arguments: `{broken`}

		act := tc.ActionRequest()

		assert.Nil(t, act.Arguments)
		assert.Equal(t, "{}", act.ArgumentsJSON())
	})

	t.Run("missing id is generated", func(t *testing.T) {
		tc := ToolCall{Name: "calculator"}

		act := tc.ActionRequest()

		assert.NotEmpty(t, act.ID)
	})
}

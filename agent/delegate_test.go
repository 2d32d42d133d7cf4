package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/invoke"
)

func TestDelegator_Delegate(t *testing.T) {
	t.Run("plain sub-agent answer", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "The capital of Norway is Oslo."},
		}}
		d := NewDelegator(provider, nil)
		reg := NewRegistry()
		reg.MustRegister(&SubAgent{Name: "researcher", SystemPrompt: "You research things."})

		content, usage, failed := d.Delegate(context.Background(), ai.NewAgentAction("researcher", "capital of Norway?"), reg)

		assert.False(t, failed)
		assert.Equal(t, "The capital of Norway is Oslo.", content)
		assert.Equal(t, 30, usage.TotalTokens())
	})

	t.Run("nil registry reports failure", func(t *testing.T) {
		provider := &mockProvider{}
		d := NewDelegator(provider, nil)

		content, _, failed := d.Delegate(context.Background(), ai.NewAgentAction("ghost", "do it"), nil)

		assert.True(t, failed)
		assert.Contains(t, content, "no sub-agents registered")
		assert.Equal(t, 0, provider.callCount)
	})

	t.Run("empty registry reports failure", func(t *testing.T) {
		provider := &mockProvider{}
		d := NewDelegator(provider, nil)

		content, _, failed := d.Delegate(context.Background(), ai.NewAgentAction("ghost", "do it"), NewRegistry())

		assert.True(t, failed)
		assert.Contains(t, content, "no sub-agents registered")
		assert.Equal(t, 0, provider.callCount)
	})

	t.Run("sub-agent chat failure is folded into result", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{err: errors.New("rate limited")},
		}}
		d := NewDelegator(provider, nil)
		reg := NewRegistry()
		reg.MustRegister(&SubAgent{Name: "researcher"})

		content, _, failed := d.Delegate(context.Background(), ai.NewAgentAction("researcher", "do it"), reg)

		assert.True(t, failed)
		assert.Contains(t, content, "delegation to researcher failed")
		assert.Contains(t, content, "rate limited")
	})

	t.Run("sub-agent with own tools runs one tool round", func(t *testing.T) {
		tools := invoke.NewRegistry()
		tools.MustRegister(invoke.Definition{
			Tool: ai.Tool{Name: "lookup", Description: "Looks things up."},
			Handler: func(_ context.Context, args map[string]any) (string, error) {
				return "42", nil
			},
		})
		provider := &mockProvider{responses: []mockResponse{
			{content: `{"name": "lookup", "arguments": {"key": "answer"}}`},
			{content: "The lookup returned 42."},
		}}
		d := NewDelegator(provider, nil)
		reg := NewRegistry()
		reg.MustRegister(&SubAgent{Name: "analyst", Tools: tools})

		content, usage, failed := d.Delegate(context.Background(), ai.NewAgentAction("analyst", "find the answer"), reg)

		require.False(t, failed)
		assert.Equal(t, "The lookup returned 42.", content)
		assert.Equal(t, 2, provider.callCount)
		assert.Equal(t, 60, usage.TotalTokens())
	})

	t.Run("provider override", func(t *testing.T) {
		parent := &mockProvider{responses: []mockResponse{
			{content: "parent answer"},
		}}
		own := &mockProvider{responses: []mockResponse{
			{content: "own answer"},
		}}
		d := NewDelegator(parent, nil)
		reg := NewRegistry()
		reg.MustRegister(&SubAgent{Name: "specialist", Provider: own})

		content, _, failed := d.Delegate(context.Background(), ai.NewAgentAction("specialist", "answer"), reg)

		assert.False(t, failed)
		assert.Equal(t, "own answer", content)
		assert.Equal(t, 0, parent.callCount)
		assert.Equal(t, 1, own.callCount)
	})
}

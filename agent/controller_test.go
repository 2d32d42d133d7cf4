package agent

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/event"
	"github.com/spetersoncode/reins/invoke"
)

// mockProvider implements ai.ChatProvider for testing.
type mockProvider struct {
	responses []mockResponse
	callCount int
	native    bool
}

type mockResponse struct {
	content   string
	toolCalls []ai.ToolCall
	err       error
}

func (m *mockProvider) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	if m.callCount >= len(m.responses) {
		return &ai.Response{Content: "No more responses"}, nil
	}
	resp := m.responses[m.callCount]
	m.callCount++
	if resp.err != nil {
		return nil, resp.err
	}
	return &ai.Response{
		Content:   resp.content,
		ToolCalls: resp.toolCalls,
		Usage:     ai.Usage{InputTokens: 10, OutputTokens: 20},
	}, nil
}

func (m *mockProvider) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	resp, err := m.Chat(ctx, messages, opts...)
	ch := make(chan ai.StreamEvent)
	go func() {
		defer close(ch)
		if err != nil {
			ch <- ai.StreamEvent{Err: err}
			return
		}
		// Simulate streaming by sending content character by character.
		for _, c := range resp.Content {
			ch <- ai.StreamEvent{Delta: string(c)}
		}
		ch <- ai.StreamEvent{Done: true, Response: resp}
	}()
	return ch, nil
}

func (m *mockProvider) Capabilities() ai.Capabilities {
	return ai.Capabilities{NativeTools: m.native, Streaming: true}
}

// panicProvider panics on every call, exercising run-level recovery.
type panicProvider struct{}

func (panicProvider) Chat(context.Context, []ai.Message, ...ai.Option) (*ai.Response, error) {
	panic("backend exploded")
}

func (panicProvider) ChatStream(context.Context, []ai.Message, ...ai.Option) (<-chan ai.StreamEvent, error) {
	panic("backend exploded")
}

func (panicProvider) Capabilities() ai.Capabilities { return ai.Capabilities{} }

// calculatorRegistry returns a registry with a working add-only calculator.
func calculatorRegistry(t *testing.T) *invoke.Registry {
	t.Helper()
	reg := invoke.NewRegistry()
	reg.MustRegister(invoke.Definition{
		Tool: ai.Tool{Name: "calculator", Description: "Adds two numbers."},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			return strconv.FormatFloat(a+b, 'f', -1, 64), nil
		},
	})
	return reg
}

const calculatorCall = "```json\n{\"tool\": \"calculator\", \"params\": {\"a\": 5, \"b\": 3}}\n```"

func TestController_SingleShot(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{content: "Hello there."},
	}}
	c := New(provider)

	result, err := c.Run(context.Background(), "hi", WithMode(ModeSingleShot))

	require.NoError(t, err)
	assert.Equal(t, "Hello there.", result.Content)
	assert.Equal(t, TerminationNoFurtherActions, result.Termination)
	assert.Empty(t, result.ToolsCalled)
	assert.Equal(t, 1, provider.callCount)
	assert.Equal(t, 30, result.Usage.TotalTokens())
}

func TestController_SingleShotStreaming(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{content: "Hi!"},
	}}
	c := New(provider)
	events := make(chan event.Event, 32)

	result, err := c.Run(context.Background(), "hi",
		WithMode(ModeSingleShot),
		WithStreaming(true),
		WithEvents(events),
	)

	require.NoError(t, err)
	assert.Equal(t, "Hi!", result.Content)
	assert.Equal(t, TerminationNoFurtherActions, result.Termination)
	assert.Equal(t, 30, result.Usage.TotalTokens())
	close(events)

	var chunks []string
	var completes int
	for ev := range events {
		switch ev.Type {
		case event.StreamChunk:
			chunks = append(chunks, ev.Delta)
		case event.StreamComplete:
			completes++
			require.NotNil(t, ev.Response)
			assert.Equal(t, "Hi!", ev.Response.Content)
		}
	}
	assert.Equal(t, []string{"H", "i", "!"}, chunks)
	assert.Equal(t, 1, completes)
}

func TestController_NoProvider(t *testing.T) {
	c := New(nil)

	_, err := c.Run(context.Background(), "hi")

	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestController_ToolLoop(t *testing.T) {
	t.Run("parsed tool call round trip", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: calculatorCall},
			{content: "The result is 8."},
		}}
		c := New(provider, WithToolRegistry(calculatorRegistry(t)))

		result, err := c.Run(context.Background(), "what is 5 + 3?")

		require.NoError(t, err)
		require.Nil(t, result.Err)
		assert.Equal(t, "The result is 8.", result.Content)
		assert.Equal(t, TerminationNoFurtherActions, result.Termination)
		assert.Equal(t, []string{"calculator"}, result.ToolsCalled)
		assert.Equal(t, 2, provider.callCount)
	})

	t.Run("native tool call hints", func(t *testing.T) {
		provider := &mockProvider{
			native: true,
			responses: []mockResponse{
				{toolCalls: []ai.ToolCall{{ID: "tc1", Name: "calculator", Arguments: `{"a": 5, "b": 3}`}}},
				{content: "The result is 8."},
			},
		}
		c := New(provider, WithToolRegistry(calculatorRegistry(t)))

		result, err := c.Run(context.Background(), "what is 5 + 3?")

		require.NoError(t, err)
		assert.Equal(t, "The result is 8.", result.Content)
		assert.Equal(t, []string{"calculator"}, result.ToolsCalled)
	})

	t.Run("duplicate actions force a final answer", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: calculatorCall},
			{content: calculatorCall}, // same call again
			{content: "I already computed this: 8."},
		}}
		c := New(provider, WithToolRegistry(calculatorRegistry(t)))

		result, err := c.Run(context.Background(), "what is 5 + 3?")

		require.NoError(t, err)
		assert.Equal(t, TerminationDuplicateActions, result.Termination)
		assert.Equal(t, "I already computed this: 8.", result.Content)
		assert.Equal(t, []string{"calculator"}, result.ToolsCalled)
		assert.Equal(t, 3, provider.callCount)
	})

	t.Run("tool call budget terminates directly", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: calculatorCall},
			{content: "unreachable"},
		}}
		c := New(provider, WithToolRegistry(calculatorRegistry(t)))

		result, err := c.Run(context.Background(), "what is 5 + 3?",
			WithBudget(Budget{MaxIterations: 10, MaxToolCalls: 1, MaxConsecutiveErrors: 3}))

		require.NoError(t, err)
		assert.Equal(t, TerminationMaxToolCalls, result.Termination)
		// No extra model round after the cap fires.
		assert.Equal(t, 1, provider.callCount)
	})

	t.Run("iteration budget forces a final answer", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "```json\n{\"tool\": \"calculator\", \"params\": {\"a\": 1, \"b\": 1}}\n```"},
			{content: "```json\n{\"tool\": \"calculator\", \"params\": {\"a\": 2, \"b\": 2}}\n```"},
			{content: "Best effort: 4."},
		}}
		c := New(provider, WithToolRegistry(calculatorRegistry(t)))

		result, err := c.Run(context.Background(), "keep calculating",
			WithBudget(Budget{MaxIterations: 2, MaxToolCalls: 20, MaxConsecutiveErrors: 3}))

		require.NoError(t, err)
		assert.Equal(t, TerminationMaxIterations, result.Termination)
		assert.Equal(t, "Best effort: 4.", result.Content)
		assert.Len(t, result.ToolsCalled, 2)
	})

	t.Run("consecutive failures force a final answer", func(t *testing.T) {
		reg := invoke.NewRegistry()
		reg.MustRegister(invoke.Definition{
			Tool: ai.Tool{Name: "broken"},
			Handler: func(_ context.Context, _ map[string]any) (string, error) {
				return "", errors.New("always fails")
			},
		})
		provider := &mockProvider{responses: []mockResponse{
			{content: "```json\n{\"tool\": \"broken\", \"params\": {\"n\": 1}}\n```"},
			{content: "```json\n{\"tool\": \"broken\", \"params\": {\"n\": 2}}\n```"},
			{content: "I could not get the tool to work."},
		}}
		c := New(provider, WithToolRegistry(reg))

		result, err := c.Run(context.Background(), "use the tool",
			WithBudget(Budget{MaxIterations: 10, MaxToolCalls: 20, MaxConsecutiveErrors: 2}))

		require.NoError(t, err)
		assert.Equal(t, TerminationConsecutiveErrors, result.Termination)
		assert.Equal(t, "I could not get the tool to work.", result.Content)
	})

	t.Run("chat error surfaces as run error", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{err: errors.New("connection refused")},
		}}
		c := New(provider)

		result, err := c.Run(context.Background(), "hi")

		require.NoError(t, err)
		require.NotNil(t, result.Err)
		assert.Equal(t, TerminationError, result.Termination)
		assert.Equal(t, "chat", result.Err.Code)
		assert.Contains(t, result.Err.Message, "connection refused")
	})

	t.Run("cancelled context", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "never used"},
		}}
		c := New(provider)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := c.Run(ctx, "hi")

		require.NoError(t, err)
		assert.Equal(t, TerminationCancelled, result.Termination)
		assert.Equal(t, 0, provider.callCount)
	})

	t.Run("tool handler panic becomes an error result", func(t *testing.T) {
		reg := invoke.NewRegistry()
		reg.MustRegister(invoke.Definition{
			Tool: ai.Tool{Name: "bomb"},
			Handler: func(_ context.Context, _ map[string]any) (string, error) {
				panic("kaboom")
			},
		})
		provider := &mockProvider{responses: []mockResponse{
			{content: "```json\n{\"tool\": \"bomb\", \"params\": {}}\n```"},
			{content: "The tool blew up, sorry."},
		}}
		c := New(provider, WithToolRegistry(reg))

		result, err := c.Run(context.Background(), "detonate")

		require.NoError(t, err)
		require.Nil(t, result.Err)
		assert.Equal(t, "The tool blew up, sorry.", result.Content)
	})

	t.Run("provider panic is recovered", func(t *testing.T) {
		c := New(panicProvider{})

		result, err := c.Run(context.Background(), "hi")

		require.NoError(t, err)
		require.NotNil(t, result.Err)
		assert.Equal(t, TerminationError, result.Termination)
		assert.Equal(t, "panic", result.Err.Code)
		assert.Contains(t, result.Err.Message, "backend exploded")
	})
}

func TestController_ParallelActions(t *testing.T) {
	var inFlight atomic.Int32
	var peak atomic.Int32
	reg := invoke.NewRegistry()
	reg.MustRegister(invoke.Definition{
		Tool: ai.Tool{Name: "slow"},
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return "done", nil
		},
	})

	twoCalls := "```json\n[{\"tool\": \"slow\", \"params\": {\"n\": 1}}, {\"tool\": \"slow\", \"params\": {\"n\": 2}}]\n```"
	provider := &mockProvider{responses: []mockResponse{
		{content: twoCalls},
		{content: "Both done."},
	}}
	c := New(provider, WithToolRegistry(reg))

	result, err := c.Run(context.Background(), "run both")

	require.NoError(t, err)
	assert.Equal(t, "Both done.", result.Content)
	assert.Len(t, result.ToolsCalled, 2)
	assert.Equal(t, int32(2), peak.Load())
}

func TestController_ResponseCache(t *testing.T) {
	cache := invoke.NewCache()
	provider := &mockProvider{responses: []mockResponse{
		{content: "Computed once."},
	}}
	c := New(provider)

	first, err := c.Run(context.Background(), "question", WithMode(ModeSingleShot), WithResponseCache(cache))
	require.NoError(t, err)

	events := make(chan event.Event, 8)
	second, err := c.Run(context.Background(), "question",
		WithMode(ModeSingleShot), WithResponseCache(cache), WithEvents(events))
	require.NoError(t, err)
	close(events)

	assert.Equal(t, "Computed once.", first.Content)
	assert.Equal(t, "Computed once.", second.Content)
	assert.Equal(t, 1, provider.callCount)

	// A cache hit still emits the run lifecycle pair.
	var types []event.Type
	for ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []event.Type{event.RunStart, event.RunEnd}, types)
}

func TestController_Delegated(t *testing.T) {
	newAgents := func() *Registry {
		agents := NewRegistry()
		agents.MustRegister(&SubAgent{
			Name:        "researcher",
			Description: "Finds facts.",
		})
		return agents
	}

	t.Run("delegation and synthesis", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "<agent_call><name>researcher</name><task>find population of Oslo</task></agent_call>"},
			{content: "Oslo has about 700,000 inhabitants."}, // sub-agent answer
			{content: "Oslo's population is roughly 700,000."},
		}}
		c := New(provider, WithAgentRegistry(newAgents()))

		result, err := c.Run(context.Background(), "how many people live in Oslo?", WithMode(ModeDelegated))

		require.NoError(t, err)
		assert.Equal(t, TerminationSynthesis, result.Termination)
		assert.Equal(t, "Oslo's population is roughly 700,000.", result.Content)
		assert.Equal(t, []string{"researcher"}, result.AgentsCalled)
		assert.Equal(t, 3, provider.callCount)
	})

	t.Run("fuzzy agent resolution", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "<agent_call><name>the researcher agent</name><task>find it</task></agent_call>"},
			{content: "found it"},
			{content: "Here is what I found."},
		}}
		c := New(provider, WithAgentRegistry(newAgents()))

		result, err := c.Run(context.Background(), "find something", WithMode(ModeDelegated))

		require.NoError(t, err)
		assert.Equal(t, []string{"researcher"}, result.AgentsCalled)
	})

	t.Run("conversational input answers directly", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "Hello! How can I help?"},
		}}
		c := New(provider, WithAgentRegistry(newAgents()))

		result, err := c.Run(context.Background(), "hello", WithMode(ModeDelegated))

		require.NoError(t, err)
		assert.Equal(t, TerminationNoFurtherActions, result.Termination)
		assert.Equal(t, "Hello! How can I help?", result.Content)
		assert.Equal(t, 1, provider.callCount)
	})

	t.Run("one nudge then plain reply is accepted", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "I think the answer is 42."},
			{content: "The answer is 42."},
		}}
		c := New(provider, WithAgentRegistry(newAgents()))

		result, err := c.Run(context.Background(), "compute the answer", WithMode(ModeDelegated))

		require.NoError(t, err)
		assert.Equal(t, TerminationNoFurtherActions, result.Termination)
		assert.Equal(t, "The answer is 42.", result.Content)
		assert.Equal(t, 2, provider.callCount)
	})

	t.Run("delegation without a registry folds into the conversation", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "<agent_call><name>researcher</name><task>find it</task></agent_call>"},
			{content: "I have no agents to delegate to, so: no result."},
		}}
		c := New(provider) // no WithAgentRegistry

		result, err := c.Run(context.Background(), "find something", WithMode(ModeDelegated))

		require.NoError(t, err)
		require.Nil(t, result.Err)
		assert.Equal(t, TerminationSynthesis, result.Termination)
		assert.Equal(t, "I have no agents to delegate to, so: no result.", result.Content)
		assert.Empty(t, result.AgentsCalled)
	})

	t.Run("no agents registered accepts plain reply", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "I'll just answer myself."},
		}}
		c := New(provider)

		result, err := c.Run(context.Background(), "do something", WithMode(ModeDelegated))

		require.NoError(t, err)
		assert.Equal(t, TerminationNoFurtherActions, result.Termination)
		assert.Equal(t, 1, provider.callCount)
	})

	t.Run("sub-agent usage is accumulated", func(t *testing.T) {
		provider := &mockProvider{responses: []mockResponse{
			{content: "<agent_call><name>researcher</name><task>dig</task></agent_call>"},
			{content: "dug"},
			{content: "All done."},
		}}
		c := New(provider, WithAgentRegistry(newAgents()))

		result, err := c.Run(context.Background(), "dig for data", WithMode(ModeDelegated))

		require.NoError(t, err)
		// Three model calls at 30 tokens each.
		assert.Equal(t, 90, result.Usage.TotalTokens())
	})
}

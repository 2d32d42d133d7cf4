package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ai "github.com/spetersoncode/reins"
)

func TestParse_Structured(t *testing.T) {
	t.Run("fenced json block", func(t *testing.T) {
		text := "I'll calculate that.\n```json\n{\"tool\": \"calculator\", \"params\": {\"a\": 5, \"b\": 3, \"op\": \"add\"}}\n```"

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, ai.ActionTool, reqs[0].Kind)
		assert.Equal(t, "calculator", reqs[0].Name)
		assert.Equal(t, float64(5), reqs[0].Arguments["a"])
		assert.Equal(t, "add", reqs[0].Arguments["op"])
	})

	t.Run("bare object without fences", func(t *testing.T) {
		text := `{"name": "get_weather", "arguments": {"city": "Tokyo"}}`

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, "get_weather", reqs[0].Name)
		assert.Equal(t, "Tokyo", reqs[0].Arguments["city"])
	})

	t.Run("object embedded in prose", func(t *testing.T) {
		text := `Let me look that up: {"name": "search", "arguments": {"query": "go generics"}} and report back.`

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, "search", reqs[0].Name)
	})

	t.Run("array of calls", func(t *testing.T) {
		text := `[{"name": "a", "arguments": {}}, {"name": "b", "arguments": {"x": 1}}]`

		reqs := Parse(text)

		require.Len(t, reqs, 2)
		assert.Equal(t, "a", reqs[0].Name)
		assert.Equal(t, "b", reqs[1].Name)
	})

	t.Run("repairs trailing commas and smart quotes", func(t *testing.T) {
		text := "```json\n{“name”: “lookup”, “arguments”: {“key”: “v”,},}\n```"

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, "lookup", reqs[0].Name)
		assert.Equal(t, "v", reqs[0].Arguments["key"])
	})

	t.Run("preserves provided id", func(t *testing.T) {
		text := `{"id": "call-abc", "name": "ping", "arguments": {}}`

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, "call-abc", reqs[0].ID)
	})

	t.Run("generates id when absent", func(t *testing.T) {
		reqs := Parse(`{"name": "ping", "arguments": {}}`)

		require.Len(t, reqs, 1)
		assert.NotEmpty(t, reqs[0].ID)
	})

	t.Run("discards non-object arguments", func(t *testing.T) {
		reqs := Parse(`{"name": "ping", "arguments": "not a map"}`)

		assert.Empty(t, reqs)
	})

	t.Run("ignores json without action shape", func(t *testing.T) {
		reqs := Parse(`The config is {"port": 8080, "debug": true} as requested.`)

		assert.Empty(t, reqs)
	})

	t.Run("nested braces in string values", func(t *testing.T) {
		text := `{"name": "write", "arguments": {"content": "if x { y }"}}`

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, "if x { y }", reqs[0].Arguments["content"])
	})
}

func TestParse_Tagged(t *testing.T) {
	t.Run("tool call with sub-tags", func(t *testing.T) {
		text := "<tool_call><name>calculator</name><arguments>{\"a\": 2, \"b\": 2, \"op\": \"mul\"}</arguments></tool_call>"

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, ai.ActionTool, reqs[0].Kind)
		assert.Equal(t, "calculator", reqs[0].Name)
		assert.Equal(t, "mul", reqs[0].Arguments["op"])
	})

	t.Run("missing arguments default to empty map", func(t *testing.T) {
		reqs := Parse("<tool_call><name>ping</name></tool_call>")

		require.Len(t, reqs, 1)
		assert.Equal(t, "ping", reqs[0].Name)
		assert.NotNil(t, reqs[0].Arguments)
		assert.Empty(t, reqs[0].Arguments)
	})

	t.Run("json body without sub-tags", func(t *testing.T) {
		reqs := Parse(`<tool_call>{"name": "search", "arguments": {"q": "x"}}</tool_call>`)

		require.Len(t, reqs, 1)
		assert.Equal(t, "search", reqs[0].Name)
	})

	t.Run("agent call carries task", func(t *testing.T) {
		text := "<agent_call><name>researcher</name><task>Summarize recent Go releases</task></agent_call>"

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, ai.ActionAgent, reqs[0].Kind)
		assert.Equal(t, "researcher", reqs[0].Name)
		assert.Equal(t, "Summarize recent Go releases", reqs[0].Task)
	})

	t.Run("unclosed final tag is recovered", func(t *testing.T) {
		reqs := Parse("<tool_call><name>ping</name><arguments>{}</arguments>")

		require.Len(t, reqs, 1)
		assert.Equal(t, "ping", reqs[0].Name)
	})

	t.Run("multiple blocks", func(t *testing.T) {
		text := "<tool_call><name>a</name></tool_call> then <tool_call><name>b</name></tool_call>"

		reqs := Parse(text)

		require.Len(t, reqs, 2)
		assert.Equal(t, "a", reqs[0].Name)
		assert.Equal(t, "b", reqs[1].Name)
	})
}

func TestParse_RawDelimited(t *testing.T) {
	t.Run("single call", func(t *testing.T) {
		text := "commentary to=functions.get_weather <|message|>{\"city\": \"Oslo\"}<|call|>"

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, "get_weather", reqs[0].Name)
		assert.Equal(t, "Oslo", reqs[0].Arguments["city"])
	})

	t.Run("missing closing sentinel yields nothing", func(t *testing.T) {
		reqs := Parse("to=functions.get_weather <|message|>{\"city\": \"Oslo\"}")

		assert.Empty(t, reqs)
	})

	t.Run("dotted tool name", func(t *testing.T) {
		reqs := Parse("to=functions.fs.read <|message|>{\"path\": \"a.txt\"}<|call|>")

		require.Len(t, reqs, 1)
		assert.Equal(t, "fs.read", reqs[0].Name)
	})
}

func TestParse_Loose(t *testing.T) {
	t.Run("tool and params lines", func(t *testing.T) {
		text := "Tool: calculator\nParams: {\"a\": 1, \"b\": 2, \"op\": \"add\"}"

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, "calculator", reqs[0].Name)
		assert.Equal(t, "add", reqs[0].Arguments["op"])
	})

	t.Run("case insensitive markers", func(t *testing.T) {
		reqs := Parse("tool: ping\nparams: {}")

		require.Len(t, reqs, 1)
		assert.Equal(t, "ping", reqs[0].Name)
	})

	t.Run("params must be an object", func(t *testing.T) {
		reqs := Parse("Tool: ping\nParams: just do it")

		assert.Empty(t, reqs)
	})
}

func TestParse_Cascade(t *testing.T) {
	t.Run("structured wins over loose", func(t *testing.T) {
		text := "Tool: wrong\nParams: {\"x\": 1}\n```json\n{\"name\": \"right\", \"arguments\": {}}\n```"

		reqs := Parse(text)

		require.Len(t, reqs, 1)
		assert.Equal(t, "right", reqs[0].Name)
	})

	t.Run("plain prose yields nothing", func(t *testing.T) {
		assert.Empty(t, Parse("The answer is 42. Nothing else to do."))
	})

	t.Run("empty input yields nothing", func(t *testing.T) {
		assert.Empty(t, Parse(""))
		assert.Empty(t, Parse("   \n\t  "))
	})
}

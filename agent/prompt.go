package agent

import (
	"strconv"
	"strings"

	ai "github.com/spetersoncode/reins"
)

// toolInstructions describes the available tools textually for backends
// without native tool calling, and tells the model how to encode a call.
func toolInstructions(tools []ai.Tool) string {
	if len(tools) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("You can use the following tools. To call one, respond with a JSON object on its own line:\n")
	b.WriteString("{\"name\": \"TOOL_NAME\", \"arguments\": {...}}\n\nAvailable tools:\n")
	for _, t := range tools {
		b.WriteString("- ")
		b.WriteString(t.Name)
		if t.Description != "" {
			b.WriteString(": ")
			b.WriteString(t.Description)
		}
		if len(t.Parameters) > 0 {
			b.WriteString("\n  parameters: ")
			b.Write(t.Parameters)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nWhen you have the information you need, answer directly without calling a tool.")
	return b.String()
}

// delegationInstructions describes the available sub-agents and tools for
// a delegated run and tells the model how to encode a delegation.
func delegationInstructions(agents []*SubAgent, tools []ai.Tool) string {
	var b strings.Builder
	b.WriteString("You coordinate specialized agents. To delegate a task, respond with:\n")
	b.WriteString("<agent_call><name>AGENT_NAME</name><task>TASK DESCRIPTION</task></agent_call>\n")
	if len(agents) > 0 {
		b.WriteString("\nAvailable agents:\n")
		for _, a := range agents {
			b.WriteString("- ")
			b.WriteString(a.Name)
			if a.Description != "" {
				b.WriteString(": ")
				b.WriteString(a.Description)
			}
			b.WriteString("\n")
		}
	}
	if len(tools) > 0 {
		b.WriteString("\nYou can also call tools directly with:\n")
		b.WriteString("<tool_call><name>TOOL_NAME</name><arguments>{...}</arguments></tool_call>\n")
		b.WriteString("\nAvailable tools:\n")
		for _, t := range tools {
			b.WriteString("- ")
			b.WriteString(t.Name)
			if t.Description != "" {
				b.WriteString(": ")
				b.WriteString(t.Description)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\nFor purely conversational messages, answer directly without delegating.")
	return b.String()
}

// finalAnswerInstruction forces a terminal round: the model must answer
// from what it already has.
const finalAnswerInstruction = "Give a final answer now based on the information you already have. Do not request any more tools or agents."

// delegationNudge is the one corrective round issued when delegation was
// expected but none occurred.
const delegationNudge = "No delegation was detected in your reply. Either delegate the task to one of the available agents using the <agent_call> format, or answer the question directly."

// synthesisInstruction asks for one final answer over collected results.
func synthesisInstruction(results []string) string {
	var b strings.Builder
	b.WriteString("Here are the results gathered so far:\n\n")
	for i, r := range results {
		b.WriteString("Result ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(": ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	b.WriteString("\nProduce one final answer for the user from these results. Do not delegate again and do not call any tools.")
	return b.String()
}

// conversationalPhrases are inputs that never warrant delegation.
var conversationalPhrases = []string{
	"hello", "hi", "hey", "thanks", "thank you", "good morning",
	"good afternoon", "good evening", "how are you", "bye", "goodbye",
}

// isConversational reports whether the input is a pure pleasantry, in
// which case a delegated run answers directly instead of nudging.
func isConversational(input string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	trimmed = strings.TrimRight(trimmed, "!.?")
	for _, p := range conversationalPhrases {
		if trimmed == p {
			return true
		}
	}
	return false
}

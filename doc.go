// Package reins provides action interpretation and execution control for
// LLM-driven conversations.
//
// A text-generation model requests side effects - invoking a tool or
// delegating to a specialized sub-agent - by embedding an action request in
// its output. reins decodes those requests from the heterogeneous encodings
// models actually emit, and drives a bounded multi-round conversation until
// a final answer is produced.
//
// # Core Packages
//
//   - [github.com/spetersoncode/reins/parse]: the parser cascade that turns
//     model text into [ActionRequest] values
//   - [github.com/spetersoncode/reins/invoke]: tool validation, caching,
//     retry, and timeout for a single tool call
//   - [github.com/spetersoncode/reins/agent]: the execution controller with
//     single-shot, tool-loop, and delegated topologies, plus sub-agent
//     delegation
//   - [github.com/spetersoncode/reins/history]: bounded conversation history
//     with pluggable persistence
//
// # Basic Usage
//
// Register a tool, build a controller, run a tool loop:
//
//	reg := invoke.NewRegistry()
//	invoke.MustRegisterFunc(reg, "get_weather", "Get current weather",
//	    json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}},"required":["location"]}`),
//	    func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return lookup(args.Location), nil
//	    },
//	)
//
//	ctrl := agent.New(provider, agent.WithToolRegistry(reg))
//	result, err := ctrl.Run(ctx, "What's the weather in Oslo?",
//	    agent.WithMode(agent.ModeToolLoop),
//	)
//	fmt.Println(result.Content)
//
// # Providers
//
// Model backends are consumed through the narrow [ChatProvider] capability.
// Adapters for Anthropic, OpenAI, Google, and Ollama-compatible servers live
// under provider/. Each declares an explicit [Capabilities] descriptor; when
// a backend lacks native tool calling, the controller falls back to the
// parser cascade automatically.
package reins

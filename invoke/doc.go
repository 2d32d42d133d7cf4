// Package invoke validates, caches, retries, and times out individual tool
// calls.
//
// Tools are held in a Registry, each with a declared parameter shape and a
// per-tool execution policy (timeout, cache TTL, retry). The Invoker runs
// one call through the full pipeline and always returns a ToolResult: every
// failure - validation, timeout, execution - is folded into a tagged error
// result with a human-readable message so the conversation loop can surface
// it to the model and keep going.
package invoke

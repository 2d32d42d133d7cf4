// Package agent drives bounded multi-round conversations with a model.
//
// The Controller owns a run's budget and state machine. Three topologies
// are supported, selected by the caller: single-shot (one model call, no
// action interpretation), tool-loop (iterate model calls and tool
// invocations until the model stops requesting actions or a budget cap
// fires), and delegated (the model may hand tasks to named sub-agents,
// whose results are synthesized into one final answer).
//
// Every run terminates: iteration, total-tool-call, and consecutive-error
// budgets each force a terminal round producing a best-effort answer, and
// repeated identical action requests are suppressed per run. The top-level
// entry point never panics; unexpected failures are converted into a
// structured error result.
package agent

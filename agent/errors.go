package agent

import "errors"

// Setup errors. These are the only conditions allowed to surface as Go
// errors from Run; everything after setup becomes a RunResult.
var (
	// ErrNoProvider indicates the controller was built without a chat
	// provider.
	ErrNoProvider = errors.New("agent: no chat provider configured")

	// ErrAgentAlreadyRegistered indicates a duplicate sub-agent name.
	ErrAgentAlreadyRegistered = errors.New("agent: sub-agent already registered")
)

package invoke

import "fmt"

// ErrToolNotFound is returned when an action references an unregistered tool.
type ErrToolNotFound struct {
	Name string
}

// Error returns a formatted error message including the tool name.
func (e *ErrToolNotFound) Error() string {
	return fmt.Sprintf("invoke: tool not found: %s", e.Name)
}

// ErrToolAlreadyRegistered is returned when registering a tool with a duplicate name.
type ErrToolAlreadyRegistered struct {
	Name string
}

// Error returns a formatted error message including the duplicate tool name.
func (e *ErrToolAlreadyRegistered) Error() string {
	return fmt.Sprintf("invoke: tool already registered: %s", e.Name)
}

// ValidationError indicates the supplied arguments do not match the tool's
// declared parameter shape.
type ValidationError struct {
	Tool   string
	Reason string
}

// Error returns a formatted message naming the tool and the mismatch.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invoke: invalid arguments for %s: %s", e.Tool, e.Reason)
}

// ErrToolTimeout indicates a tool call exceeded its per-call timeout.
type ErrToolTimeout struct {
	Name string
}

// Error returns a formatted error message including the tool name.
func (e *ErrToolTimeout) Error() string {
	return fmt.Sprintf("invoke: tool %s timed out", e.Name)
}

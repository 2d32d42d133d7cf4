package invoke

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/retry"
)

// Handler is a function that executes a tool call and returns a result.
// The context supports cancellation and timeout. Arguments arrive already
// validated against the tool's declared parameter shape.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// TypedHandler is a function that executes a tool call with typed arguments.
type TypedHandler[T any] func(ctx context.Context, args T) (string, error)

// Definition combines a tool with its handler and execution policy.
type Definition struct {
	// Tool is the advertised tool: name, description, parameter schema.
	Tool ai.Tool

	// Handler executes the tool body.
	Handler Handler

	// Timeout caps a single execution attempt. Zero means no per-call cap.
	Timeout time.Duration

	// CacheTTL enables result caching for this tool when positive.
	CacheTTL time.Duration

	// Retryable enables bounded exponential-backoff retry of failed
	// attempts.
	Retryable bool

	// Retry overrides the retry policy for retryable tools.
	// The zero value means retry.DefaultConfig.
	Retry retry.Config
}

// Registry manages registered tools and their execution policy.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Definition
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Definition),
	}
}

// Register adds a tool definition to the registry.
// Returns an error if a tool with the same name is already registered.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Tool.Name]; exists {
		return &ErrToolAlreadyRegistered{Name: def.Tool.Name}
	}
	r.tools[def.Tool.Name] = def
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Unregister removes a tool from the registry.
// It is a no-op if the tool is not registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a definition by tool name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Tools returns all registered tool definitions for advertising to a
// chat provider.
func (r *Registry) Tools() []ai.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]ai.Tool, 0, len(r.tools))
	for _, def := range r.tools {
		tools = append(tools, def.Tool)
	}
	return tools
}

// Names returns the names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// RegisterFunc registers a tool with a typed handler that automatically
// unmarshals the argument map into the specified type T.
func RegisterFunc[T any](r *Registry, name, description string, params json.RawMessage, fn TypedHandler[T]) error {
	def := Definition{
		Tool: ai.Tool{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			raw, err := json.Marshal(args)
			if err != nil {
				return "", err
			}
			var typed T
			if err := json.Unmarshal(raw, &typed); err != nil {
				return "", err
			}
			return fn(ctx, typed)
		},
	}
	return r.Register(def)
}

// MustRegisterFunc is like RegisterFunc but panics on error.
func MustRegisterFunc[T any](r *Registry, name, description string, params json.RawMessage, fn TypedHandler[T]) {
	if err := RegisterFunc(r, name, description, params, fn); err != nil {
		panic(err)
	}
}

package agent

import (
	"strings"
	"sync"

	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/invoke"
)

// SubAgent is a specialized agent a run can delegate tasks to.
type SubAgent struct {
	// Name is the unique identifier the model addresses the agent by.
	Name string
	// Description tells the delegating model what the agent is for.
	Description string
	// SystemPrompt is the agent's own system message.
	SystemPrompt string
	// Provider optionally overrides the parent run's chat provider.
	Provider ai.ChatProvider
	// Tools optionally gives the agent its own tool registry.
	Tools *invoke.Registry
	// ChatOptions are applied to the agent's model calls.
	ChatOptions []ai.Option
}

// Registry manages a collection of sub-agents. Registration order is
// preserved: name resolution falls back to the first registered agent when
// a delegation target cannot be matched.
// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*SubAgent
	order  []string
}

// NewRegistry creates an empty sub-agent registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]*SubAgent),
	}
}

// Register adds a sub-agent to the registry.
// Returns ErrAgentAlreadyRegistered for duplicate names.
func (r *Registry) Register(agent *SubAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[agent.Name]; exists {
		return ErrAgentAlreadyRegistered
	}
	r.agents[agent.Name] = agent
	r.order = append(r.order, agent.Name)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(agent *SubAgent) {
	if err := r.Register(agent); err != nil {
		panic(err)
	}
}

// Get retrieves a sub-agent by exact name. Returns nil if not found.
func (r *Registry) Get(name string) *SubAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[name]
}

// Has returns true if a sub-agent with the given name exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// All returns all registered sub-agents in registration order.
func (r *Registry) All() []*SubAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := make([]*SubAgent, 0, len(r.order))
	for _, name := range r.order {
		agents = append(agents, r.agents[name])
	}
	return agents
}

// Len returns the number of registered sub-agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Resolve finds the delegation target for a requested name: exact match
// first, then case-insensitive substring match in registration order, then
// the first registered agent. The last fallback keeps the loop moving when
// a model invents an agent name; it can misroute a task, which is accepted
// leniency. Returns nil only when the registry is nil or empty.
func (r *Registry) Resolve(name string) *SubAgent {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.agents[name]; ok {
		return a
	}

	lower := strings.ToLower(name)
	for _, candidate := range r.order {
		cl := strings.ToLower(candidate)
		if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			return r.agents[candidate]
		}
	}

	if len(r.order) > 0 {
		return r.agents[r.order[0]]
	}
	return nil
}

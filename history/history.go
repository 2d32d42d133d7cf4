package history

import (
	"context"
	"encoding/json"
	"sync"

	ai "github.com/spetersoncode/reins"
)

// History manages bounded conversation history with persistence support.
// It is safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	messages []ai.Message
	adapter  Adapter

	maxMessages int
	keepSystem  bool
}

// Option configures a History.
type Option func(*History)

// WithMaxMessages caps the number of retained messages. Zero means
// unbounded. When the cap is exceeded the oldest non-system messages are
// evicted first.
func WithMaxMessages(n int) Option {
	return func(h *History) {
		h.maxMessages = n
	}
}

// WithKeepSystemMessage pins the original system message so it survives
// trimming, evicting one additional non-system message to make room.
func WithKeepSystemMessage(keep bool) Option {
	return func(h *History) {
		h.keepSystem = keep
	}
}

// WithAdapter sets the persistence backend. Defaults to in-memory.
func WithAdapter(adapter Adapter) Option {
	return func(h *History) {
		h.adapter = adapter
	}
}

// New creates an empty History.
func New(opts ...Option) *History {
	h := &History{messages: make([]ai.Message, 0)}
	for _, opt := range opts {
		opt(h)
	}
	if h.adapter == nil {
		h.adapter = NewMemoryAdapter()
	}
	return h
}

// NewFrom creates a History initialized with existing messages.
// The trimming policy applies immediately.
func NewFrom(messages []ai.Message, opts ...Option) *History {
	h := New(opts...)
	h.Append(messages...)
	return h
}

// Messages returns a copy of all messages.
func (h *History) Messages() []ai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]ai.Message, len(h.messages))
	copy(result, h.messages)
	return result
}

// Append adds messages to the history and applies the trimming policy.
func (h *History) Append(msgs ...ai.Message) {
	if len(msgs) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msgs...)
	h.trim()
}

// trim enforces the retention invariant: at most maxMessages non-system
// messages remain, oldest evicted first. System messages sit outside the
// budget and are never evicted here.
func (h *History) trim() {
	if h.maxMessages <= 0 {
		return
	}

	// The pinned system message occupies one retained slot, so one
	// additional non-system message is evicted to make room for it.
	budget := h.maxMessages
	if h.keepSystem {
		for i := range h.messages {
			if h.messages[i].Role == ai.RoleSystem {
				budget--
				break
			}
		}
	}

	nonSystem := 0
	for i := range h.messages {
		if h.messages[i].Role != ai.RoleSystem {
			nonSystem++
		}
	}
	if nonSystem <= budget {
		return
	}

	evict := nonSystem - budget
	kept := make([]ai.Message, 0, len(h.messages)-evict)
	for i := range h.messages {
		msg := h.messages[i]
		if msg.Role == ai.RoleSystem {
			// System messages never count against the budget.
			kept = append(kept, msg)
			continue
		}
		if evict > 0 {
			evict--
			continue
		}
		kept = append(kept, msg)
	}
	h.messages = kept
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clear removes all messages.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = make([]ai.Message, 0)
}

// Clone creates a deep copy of the History sharing no state with the
// original. The clone uses an in-memory adapter.
func (h *History) Clone() *History {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clone := New(WithMaxMessages(h.maxMessages), WithKeepSystemMessage(h.keepSystem))
	if len(h.messages) > 0 {
		clone.messages = make([]ai.Message, len(h.messages))
		copy(clone.messages, h.messages)
	}
	return clone
}

// Last returns the last n messages. If n > Len(), returns all messages.
func (h *History) Last(n int) []ai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	start := len(h.messages) - n
	if start < 0 {
		start = 0
	}
	result := make([]ai.Message, len(h.messages)-start)
	copy(result, h.messages[start:])
	return result
}

// Sync persists the messages to the adapter under the given key.
func (h *History) Sync(ctx context.Context, key string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	raw, err := json.Marshal(h.messages)
	if err != nil {
		return &SerializationError{Key: key, Err: err}
	}
	return h.adapter.Set(ctx, key, raw)
}

// Reload loads messages from the adapter using the given key.
func (h *History) Reload(ctx context.Context, key string) error {
	raw, ok, err := h.adapter.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrKeyNotFound
	}

	var messages []ai.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return &SerializationError{Key: key, Err: err}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = messages
	h.trim()
	return nil
}

// Adapter returns the underlying adapter.
func (h *History) Adapter() Adapter {
	return h.adapter
}

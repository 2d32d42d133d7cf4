package reins

import "context"

// Capabilities describes what a chat provider can do. It is attached to each
// provider at construction time so callers branch on declared capability
// flags instead of probing for optional methods.
type Capabilities struct {
	// NativeTools indicates the backend surfaces tool calls as structured
	// hints on the response. When false, the controller applies the parser
	// cascade to the response text instead.
	NativeTools bool
	// Streaming indicates ChatStream yields true incremental chunks.
	// Providers without streaming support emit the complete response as a
	// single chunk.
	Streaming bool
}

// ChatProvider defines the narrow chat capability consumed by the
// execution controller: messages and options in, content, native action
// hints, and usage out.
type ChatProvider interface {
	// Chat sends a conversation and returns a complete response.
	Chat(ctx context.Context, messages []Message, opts ...Option) (*Response, error)

	// ChatStream sends a conversation and returns a channel of streaming
	// events. The channel is closed when the stream is complete or an error
	// occurs. Callers should check StreamEvent.Err for any errors.
	ChatStream(ctx context.Context, messages []Message, opts ...Option) (<-chan StreamEvent, error)

	// Capabilities returns the provider's declared capability descriptor.
	Capabilities() Capabilities
}

package reins

import "github.com/google/uuid"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ContentPartType represents the type of content in a multipart message.
type ContentPartType string

const (
	ContentPartTypeText  ContentPartType = "text"
	ContentPartTypeImage ContentPartType = "image"
)

// ContentPart represents a single part of multipart content.
type ContentPart struct {
	// Type indicates the content type: "text" or "image".
	Type ContentPartType `json:"type"`
	// Text contains the text content. Only used when Type is "text".
	Text string `json:"text,omitempty"`
	// ImageURL contains a URL to an image. Mutually exclusive with Base64.
	ImageURL string `json:"imageUrl,omitempty"`
	// Base64 contains base64-encoded image data. Mutually exclusive with ImageURL.
	Base64 string `json:"base64,omitempty"`
	// MimeType specifies the image format (e.g., "image/png").
	// Required when using Base64.
	MimeType string `json:"mimeType,omitempty"`
}

// NewTextPart creates a text content part.
func NewTextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartTypeText, Text: text}
}

// NewImageURLPart creates an image content part from a URL.
func NewImageURLPart(url string) ContentPart {
	return ContentPart{Type: ContentPartTypeImage, ImageURL: url}
}

// Message represents a single message in a conversation.
type Message struct {
	// ID is an optional unique identifier for the message.
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// Name optionally identifies the sender (tool or sub-agent name).
	Name string `json:"name,omitempty"`
	// Parts contains multipart content (text, images).
	// If populated, Content is ignored by providers that support multipart.
	Parts []ContentPart `json:"parts,omitempty"`
	// ToolCalls contains native action hints from an assistant message.
	// Only populated when Role is RoleAssistant and the backend surfaced them.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	// ToolResults contains results from tool executions.
	// Only populated when Role is RoleTool.
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// GenerateMessageID creates a unique message identifier.
func GenerateMessageID() string {
	return "msg-" + uuid.New().String()
}

// HasParts returns true if the message has multipart content.
func (m Message) HasParts() bool {
	return len(m.Parts) > 0
}

// Response represents a complete response from a chat provider.
type Response struct {
	Content      string `json:"content,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
	Usage        Usage  `json:"usage"`
	// ToolCalls contains native action hints from the model, if the
	// backend supports them. Backends without native tool calling leave
	// this empty and the parser cascade is applied to Content instead.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// Usage contains token usage information for a request.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add accumulates usage from another request.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// TotalTokens returns input plus output tokens.
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// StreamEvent represents a single event in a streaming response.
type StreamEvent struct {
	// Delta contains the incremental content for this event.
	Delta string
	// Done indicates if this is the final event in the stream.
	Done bool
	// Response contains the final response data when Done is true.
	Response *Response
	// Err contains any error that occurred during streaming.
	Err error
}

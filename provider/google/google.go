// Package google adapts the Google GenAI SDK to the reins.ChatProvider
// interface. Tool use is native via function declarations.
package google

import (
	"context"

	ai "github.com/spetersoncode/reins"
	"google.golang.org/genai"
)

// DefaultModel is used when neither the client nor the request names one.
const DefaultModel = "gemini-2.0-flash"

// Client wraps the Google GenAI SDK to implement ai.ChatProvider.
type Client struct {
	client *genai.Client
	model  string
}

// ClientOption configures the Google client.
type ClientOption func(*Client)

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// New creates a new Google GenAI client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		client: client,
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Capabilities reports native tool-calling and streaming support.
func (c *Client) Capabilities() ai.Capabilities {
	return ai.Capabilities{NativeTools: true, Streaming: true}
}

func (c *Client) buildRequest(messages []ai.Message, options *ai.Options) (string, []*genai.Content, *genai.GenerateContentConfig) {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	contents := convertMessages(messages)
	config := &genai.GenerateContentConfig{}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(options.MaxTokens)
	}
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		config.Temperature = &temp
	}
	if len(options.Tools) > 0 {
		config.Tools = convertTools(options.Tools)
		if options.ToolChoice != "" {
			config.ToolConfig = convertToolChoice(options.ToolChoice)
		}
	}
	return model, contents, config
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	options := ai.ApplyOptions(opts...)
	model, contents, config := c.buildRequest(messages, options)

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}

	content := ""
	finishReason := ""
	var toolCalls []ai.ToolCall
	if len(resp.Candidates) > 0 {
		finishReason = string(resp.Candidates[0].FinishReason)
		if resp.Candidates[0].Content != nil {
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					content += part.Text
				}
			}
			toolCalls = extractToolCalls(resp.Candidates[0].Content.Parts)
		}
	}

	usage := ai.Usage{}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &ai.Response{
		Content:      content,
		FinishReason: finishReason,
		Usage:        usage,
		ToolCalls:    toolCalls,
	}, nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	options := ai.ApplyOptions(opts...)
	model, contents, config := c.buildRequest(messages, options)

	ch := make(chan ai.StreamEvent)

	go func() {
		defer close(ch)

		var fullContent string
		var finishReason string
		var usage ai.Usage
		var allParts []*genai.Part

		for resp := range c.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
				for _, part := range resp.Candidates[0].Content.Parts {
					if part.Text != "" {
						ch <- ai.StreamEvent{Delta: part.Text}
						fullContent += part.Text
					}
				}
				allParts = append(allParts, resp.Candidates[0].Content.Parts...)
				finishReason = string(resp.Candidates[0].FinishReason)
			}
			if resp.UsageMetadata != nil {
				usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
				usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			}
		}

		ch <- ai.StreamEvent{
			Done: true,
			Response: &ai.Response{
				Content:      fullContent,
				FinishReason: finishReason,
				Usage:        usage,
				ToolCalls:    extractToolCalls(allParts),
			},
		}
	}()

	return ch, nil
}

var _ ai.ChatProvider = (*Client)(nil)

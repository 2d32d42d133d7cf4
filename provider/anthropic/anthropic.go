// Package anthropic adapts the Anthropic SDK to the reins.ChatProvider
// interface. Tool use is native: registered tools are advertised on the
// request and tool_use blocks come back as structured call hints.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ai "github.com/spetersoncode/reins"
)

// DefaultModel is used when neither the client nor the request names one.
const DefaultModel = "claude-sonnet-4-5"

// Client wraps the Anthropic SDK to implement ai.ChatProvider.
type Client struct {
	client *anthropic.Client
	model  string
}

// ClientOption configures the Anthropic client.
type ClientOption func(*Client)

// WithAPIKey sets the API key explicitly instead of using the
// ANTHROPIC_API_KEY environment variable.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		client := anthropic.NewClient(option.WithAPIKey(key))
		c.client = &client
	}
}

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// New creates a new Anthropic client. Without WithAPIKey the SDK reads the
// key from the ANTHROPIC_API_KEY environment variable.
func New(opts ...ClientOption) *Client {
	c := &Client{model: DefaultModel}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		client := anthropic.NewClient()
		c.client = &client
	}
	return c
}

// Capabilities reports native tool-calling and streaming support.
func (c *Client) Capabilities() ai.Capabilities {
	return ai.Capabilities{NativeTools: true, Streaming: true}
}

func (c *Client) buildParams(messages []ai.Message, options *ai.Options) anthropic.MessageNewParams {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	maxTokens := int64(4096)
	if options.MaxTokens > 0 {
		maxTokens = int64(options.MaxTokens)
	}

	msgs, system := convertMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(*options.Temperature)
	}
	if len(options.Tools) > 0 {
		params.Tools = convertTools(options.Tools)
		if options.ToolChoice != "" && options.ToolChoice != ai.ToolChoiceNone {
			params.ToolChoice = convertToolChoice(options.ToolChoice)
		}
	}
	return params
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	options := ai.ApplyOptions(opts...)
	params := c.buildParams(messages, options)

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &ai.Response{
		Content:      content,
		FinishReason: string(resp.StopReason),
		Usage: ai.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		ToolCalls: extractToolCalls(resp.Content),
	}, nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	options := ai.ApplyOptions(opts...)
	params := c.buildParams(messages, options)

	stream := c.client.Messages.NewStreaming(ctx, params)
	ch := make(chan ai.StreamEvent)

	go func() {
		defer close(ch)
		var acc anthropic.Message

		for stream.Next() {
			event := stream.Current()
			acc.Accumulate(event)

			if event.Type == "content_block_delta" {
				delta := event.AsContentBlockDelta()
				if textDelta := delta.Delta.AsTextDelta(); textDelta.Type == "text_delta" {
					ch <- ai.StreamEvent{Delta: textDelta.Text}
				}
			}
		}

		if err := stream.Err(); err != nil {
			ch <- ai.StreamEvent{Err: err}
			return
		}

		content := ""
		for _, block := range acc.Content {
			if block.Type == "text" {
				content += block.Text
			}
		}

		ch <- ai.StreamEvent{
			Done: true,
			Response: &ai.Response{
				Content:      content,
				FinishReason: string(acc.StopReason),
				Usage: ai.Usage{
					InputTokens:  int(acc.Usage.InputTokens),
					OutputTokens: int(acc.Usage.OutputTokens),
				},
				ToolCalls: extractToolCalls(acc.Content),
			},
		}
	}()

	return ch, nil
}

var _ ai.ChatProvider = (*Client)(nil)

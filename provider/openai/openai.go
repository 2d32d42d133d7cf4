// Package openai adapts the OpenAI SDK to the reins.ChatProvider interface.
// Tool use is native. API errors are wrapped with reins error categories so
// the retry layer can tell rate limits from bad requests.
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	ai "github.com/spetersoncode/reins"
)

// DefaultModel is used when neither the client nor the request names one.
const DefaultModel = "gpt-4o"

// Client wraps the OpenAI SDK to implement ai.ChatProvider.
type Client struct {
	client *openai.Client
	model  string
}

// ClientOption configures the OpenAI client.
type ClientOption func(*Client)

// WithAPIKey sets the API key explicitly instead of using the
// OPENAI_API_KEY environment variable.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		client := openai.NewClient(option.WithAPIKey(key))
		c.client = &client
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		client := openai.NewClient(option.WithBaseURL(url))
		c.client = &client
	}
}

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// New creates a new OpenAI client. Without WithAPIKey the SDK reads the key
// from the OPENAI_API_KEY environment variable.
func New(opts ...ClientOption) *Client {
	c := &Client{model: DefaultModel}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		client := openai.NewClient()
		c.client = &client
	}
	return c
}

// Capabilities reports native tool-calling and streaming support.
func (c *Client) Capabilities() ai.Capabilities {
	return ai.Capabilities{NativeTools: true, Streaming: true}
}

func (c *Client) buildParams(messages []ai.Message, options *ai.Options) (openai.ChatCompletionNewParams, error) {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	converted, err := convertMessages(messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: converted,
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if len(options.Tools) > 0 {
		params.Tools = convertTools(options.Tools)
		if options.ToolChoice != "" {
			params.ToolChoice = convertToolChoice(options.ToolChoice)
		}
	}
	return params, nil
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	options := ai.ApplyOptions(opts...)
	params, err := c.buildParams(messages, options)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}

	return &ai.Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: ai.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		ToolCalls: extractToolCalls(resp.Choices[0].Message),
	}, nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	options := ai.ApplyOptions(opts...)
	params, err := c.buildParams(messages, options)
	if err != nil {
		return nil, err
	}
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	ch := make(chan ai.StreamEvent)

	go func() {
		defer close(ch)
		var acc openai.ChatCompletionAccumulator

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				ch <- ai.StreamEvent{Delta: chunk.Choices[0].Delta.Content}
			}
		}

		if err := stream.Err(); err != nil {
			ch <- ai.StreamEvent{Err: wrapError(err)}
			return
		}

		completion := acc.Choices[0]
		ch <- ai.StreamEvent{
			Done: true,
			Response: &ai.Response{
				Content:      completion.Message.Content,
				FinishReason: string(completion.FinishReason),
				Usage: ai.Usage{
					InputTokens:  int(acc.Usage.PromptTokens),
					OutputTokens: int(acc.Usage.CompletionTokens),
				},
				ToolCalls: extractAccumulatedToolCalls(completion.Message.ToolCalls),
			},
		}
	}()

	return ch, nil
}

var _ ai.ChatProvider = (*Client)(nil)

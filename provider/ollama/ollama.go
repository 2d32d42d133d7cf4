// Package ollama adapts a local Ollama server to the reins.ChatProvider
// interface over its HTTP chat API. Ollama models vary widely in tool
// support, so this provider reports no native tool capability; callers fall
// back to text-based action parsing.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ai "github.com/spetersoncode/reins"
)

// DefaultBaseURL is the standard local Ollama endpoint.
const DefaultBaseURL = "http://localhost:11434"

// DefaultModel is used when neither the client nor the request names one.
const DefaultModel = "llama3.2"

// Client talks to an Ollama server's /api/chat endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// ClientOption configures the Ollama client.
type ClientOption func(*Client)

// WithBaseURL points the client at a non-default Ollama server.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the default model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates an Ollama client.
func New(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		httpClient: &http.Client{
			// Large local models need time to load and generate.
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capabilities reports streaming but no native tool-calling; tool use rides
// on text parsing.
func (c *Client) Capabilities() ai.Capabilities {
	return ai.Capabilities{NativeTools: false, Streaming: true}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *modelOptions `json:"options,omitempty"`
}

type modelOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

func (c *Client) buildRequest(messages []ai.Message, options *ai.Options, stream bool) chatRequest {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}

	req := chatRequest{
		Model:    model,
		Messages: convertMessages(messages),
		Stream:   stream,
	}
	if options.Temperature != nil || options.MaxTokens > 0 {
		opts := &modelOptions{NumPredict: options.MaxTokens}
		if options.Temperature != nil {
			opts.Temperature = *options.Temperature
		}
		req.Options = opts
	}
	return req
}

func (c *Client) post(ctx context.Context, req chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, ai.NewTransientError(fmt.Sprintf("ollama: request failed: %v", err), 0, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		msg := fmt.Sprintf("ollama: API error %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 500 {
			return nil, ai.NewTransientError(msg, resp.StatusCode, nil)
		}
		return nil, ai.NewPermanentError(msg, resp.StatusCode, nil)
	}
	return resp, nil
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	options := ai.ApplyOptions(opts...)

	resp, err := c.post(ctx, c.buildRequest(messages, options, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}

	return &ai.Response{
		Content:      chatResp.Message.Content,
		FinishReason: "stop",
		Usage: ai.Usage{
			InputTokens:  chatResp.PromptEvalCount,
			OutputTokens: chatResp.EvalCount,
		},
	}, nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
// Ollama streams newline-delimited JSON chunks.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	options := ai.ApplyOptions(opts...)

	resp, err := c.post(ctx, c.buildRequest(messages, options, true))
	if err != nil {
		return nil, err
	}

	ch := make(chan ai.StreamEvent)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		var content strings.Builder
		var usage ai.Usage
		decoder := json.NewDecoder(resp.Body)

		for {
			var chunk chatResponse
			if err := decoder.Decode(&chunk); err != nil {
				if err == io.EOF {
					break
				}
				ch <- ai.StreamEvent{Err: fmt.Errorf("ollama: decode stream chunk: %w", err)}
				return
			}

			if chunk.Message.Content != "" {
				content.WriteString(chunk.Message.Content)
				ch <- ai.StreamEvent{Delta: chunk.Message.Content}
			}
			if chunk.Done {
				usage.InputTokens = chunk.PromptEvalCount
				usage.OutputTokens = chunk.EvalCount
				break
			}
		}

		ch <- ai.StreamEvent{
			Done: true,
			Response: &ai.Response{
				Content:      content.String(),
				FinishReason: "stop",
				Usage:        usage,
			},
		}
	}()

	return ch, nil
}

func convertMessages(messages []ai.Message) []chatMessage {
	result := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleTool:
			for _, tr := range msg.ToolResults {
				result = append(result, chatMessage{
					Role:    "tool",
					Content: tr.Content,
				})
			}
		default:
			if msg.Content != "" {
				result = append(result, chatMessage{
					Role:    string(msg.Role),
					Content: msg.Content,
				})
			}
		}
	}
	return result
}

var _ ai.ChatProvider = (*Client)(nil)

// Package mcp bridges the Model Context Protocol into reins.
//
// A [Source] connects to a remote MCP server and mirrors its tools into an
// [invoke.Registry]; proxied tools are invoked like any local tool, with the
// same validation, caching, and timeout handling. [NewServer] goes the other
// direction and exposes a registry's tools to MCP clients.
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/reins"
	"github.com/spetersoncode/reins/invoke"
)

// Source provides access to tools served by a remote MCP server. The tool
// list is cached locally and can be refreshed with [Source.Refresh].
//
// Source is safe for concurrent use.
type Source struct {
	client *client.Client
	mu     sync.RWMutex
	tools  map[string]ai.Tool
}

// Connect creates a Source connected to an MCP server via stdio. The command
// is the path to the server executable; args are passed to it.
func Connect(ctx context.Context, command string, env []string, args ...string) (*Source, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: create client: %w", err)
	}
	return connect(ctx, c)
}

// ConnectSSE creates a Source connected to an MCP server via SSE.
func ConnectSSE(ctx context.Context, baseURL string) (*Source, error) {
	c, err := client.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("mcp: create SSE client: %w", err)
	}
	return connect(ctx, c)
}

// ConnectClient creates a Source from an existing MCP client. The client is
// started and initialized here.
func ConnectClient(ctx context.Context, c *client.Client) (*Source, error) {
	return connect(ctx, c)
}

func connect(ctx context.Context, c *client.Client) (*Source, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcp: start client: %w", err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "reins-mcp-client",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp: initialize session: %w", err)
	}

	s := &Source{
		client: c,
		tools:  make(map[string]ai.Tool),
	}
	if err := s.Refresh(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}
	return s, nil
}

// Close closes the connection to the MCP server.
func (s *Source) Close() error {
	return s.client.Close()
}

// Refresh fetches the current tool list from the server, replacing the
// cached list.
func (s *Source) Refresh(ctx context.Context) error {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = make(map[string]ai.Tool, len(result.Tools))
	for _, t := range result.Tools {
		s.tools[t.Name] = FromMCPTool(t)
	}
	return nil
}

// Tools returns the cached tool definitions.
func (s *Source) Tools() []ai.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]ai.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t)
	}
	return tools
}

// Has reports whether the server offers a tool with the given name.
func (s *Source) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tools[name]
	return ok
}

// Len returns the number of cached tools.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tools)
}

// Call executes a tool on the remote server and returns its text result.
func (s *Source) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := s.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", err
	}

	res := FromMCPCallToolResult("", result)
	if res.IsError {
		return "", fmt.Errorf("mcp: tool %s failed: %s", name, res.Content)
	}
	return res.Content, nil
}

// RegisterAll mirrors every remote tool into the given registry. Each
// registered handler proxies the call to the MCP server. Remote calls are
// marked retryable since transport hiccups dominate their failure modes.
func (s *Source) RegisterAll(reg *invoke.Registry) error {
	for _, t := range s.Tools() {
		name := t.Name
		def := invoke.Definition{
			Tool: t,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return s.Call(ctx, name, args)
			},
			Retryable: true,
		}
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

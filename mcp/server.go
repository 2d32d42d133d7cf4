package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spetersoncode/reins/invoke"
)

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

// NewServer creates an MCP server exposing every tool in the registry, so
// MCP clients can discover and call them.
func NewServer(registry *invoke.Registry, opts ...ServerOption) *server.MCPServer {
	cfg := &serverConfig{
		name:    "reins-mcp-server",
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := server.NewMCPServer(
		cfg.name,
		cfg.version,
		server.WithToolCapabilities(true),
	)

	for _, name := range registry.Names() {
		def, ok := registry.Get(name)
		if !ok || def.Handler == nil {
			continue
		}
		s.AddTool(ToMCPTool(def.Tool), mcpHandler(def))
	}

	return s
}

// mcpHandler wraps an invoke handler as an MCP tool handler.
func mcpHandler(def invoke.Definition) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := req.Params.Arguments.(map[string]any)
		if !ok || args == nil {
			args = map[string]any{}
		}

		result, err := def.Handler(ctx, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	}
}

// ServeStdio starts an MCP server communicating over stdin/stdout, the
// standard transport for servers invoked as subprocesses.
func ServeStdio(registry *invoke.Registry, opts ...ServerOption) error {
	return server.ServeStdio(NewServer(registry, opts...))
}

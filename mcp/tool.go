package mcp

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/reins"
)

// ToMCPTool converts a reins Tool to an MCP Tool. The JSON Schema parameters
// become the MCP tool's raw input schema.
func ToMCPTool(t ai.Tool) mcp.Tool {
	return mcp.NewToolWithRawSchema(t.Name, t.Description, t.Parameters)
}

// FromMCPTool converts an MCP Tool to a reins Tool, taking the raw input
// schema when present and marshalling the structured one otherwise.
func FromMCPTool(t mcp.Tool) ai.Tool {
	var schema json.RawMessage
	if len(t.RawInputSchema) > 0 {
		schema = t.RawInputSchema
	} else if data, err := json.Marshal(t.InputSchema); err == nil {
		schema = data
	}

	return ai.Tool{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  schema,
	}
}

// FromMCPCallToolResult converts an MCP call result to a reins ToolResult,
// concatenating text content blocks.
func FromMCPCallToolResult(callID string, result *mcp.CallToolResult) ai.ToolResult {
	if result == nil {
		return ai.ToolResult{
			ToolCallID: callID,
			IsError:    true,
		}
	}

	var textParts []string
	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			textParts = append(textParts, content.Text)
		case *mcp.TextContent:
			textParts = append(textParts, content.Text)
		default:
			if data, err := json.Marshal(content); err == nil {
				textParts = append(textParts, string(data))
			}
		}
	}
	if result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			textParts = append(textParts, string(data))
		}
	}

	return ai.ToolResult{
		ToolCallID: callID,
		Content:    strings.Join(textParts, "\n"),
		IsError:    result.IsError,
	}
}

// ToMCPCallToolResult converts a reins ToolResult to an MCP call result.
func ToMCPCallToolResult(result ai.ToolResult) *mcp.CallToolResult {
	if result.IsError {
		return mcp.NewToolResultError(result.Content)
	}
	return mcp.NewToolResultText(result.Content)
}

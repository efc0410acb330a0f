package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kanon0/llmchat/internal/tools"
)

// resultToMCP converts a tools.Result to an MCP call result. Tool-level
// failures become error results with a "[code] message" text; successes
// carry the result data as JSON so clients can parse it.
func resultToMCP(result tools.Result) *mcp.CallToolResult {
	if result.Status == tools.StatusError {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{
				Text: fmt.Sprintf("[%s] %s", result.Error.Code, result.Error.Message),
			}},
			IsError: true,
		}
	}

	if len(result.Data) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Message}},
		}
	}

	b, err := json.Marshal(result.Data)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "encoding result data failed"}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}

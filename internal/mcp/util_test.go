package mcp

import (
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kanon0/llmchat/internal/tools"
)

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("content length = %d, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] type = %T, want *mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func TestResultToMCPError(t *testing.T) {
	result := tools.Result{
		Status: tools.StatusError,
		Error:  &tools.Error{Code: tools.ErrCodeNotFound, Message: "no location found"},
	}

	converted := resultToMCP(result)
	if !converted.IsError {
		t.Error("resultToMCP() error result should set IsError")
	}
	if got, want := textOf(t, converted), "[not_found] no location found"; got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestResultToMCPSuccessWithData(t *testing.T) {
	result := tools.Result{
		Status:  tools.StatusSuccess,
		Message: "current weather for Tokyo, Japan",
		Data:    map[string]any{"temperature_c": 21.5, "description": "partly cloudy"},
	}

	converted := resultToMCP(result)
	if converted.IsError {
		t.Fatal("resultToMCP() success result should not set IsError")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(textOf(t, converted)), &data); err != nil {
		t.Fatalf("unmarshaling data text: %v", err)
	}
	if data["description"] != "partly cloudy" {
		t.Errorf("description = %v, want partly cloudy", data["description"])
	}
}

func TestResultToMCPSuccessWithoutData(t *testing.T) {
	result := tools.Result{Status: tools.StatusSuccess, Message: "done"}

	converted := resultToMCP(result)
	if converted.IsError {
		t.Fatal("resultToMCP() success result should not set IsError")
	}
	if got := textOf(t, converted); got != "done" {
		t.Errorf("text = %q, want %q", got, "done")
	}
}

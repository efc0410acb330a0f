package mcp

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/log"
	"github.com/kanon0/llmchat/internal/security"
	"github.com/kanon0/llmchat/internal/tools"
)

func testKit(t *testing.T, cfg config.Tools) *tools.Kit {
	t.Helper()
	logger := log.NewNop()
	return tools.NewKit(cfg, security.NewFetcher(logger), logger)
}

// connectServer builds a server over the given kit and returns a client
// session connected via in-memory transports.
func connectServer(t *testing.T, kit *tools.Kit) *mcp.ClientSession {
	t.Helper()

	server, err := NewServer(Config{Name: "llmchat", Version: "test"}, kit, log.NewNop())
	if err != nil {
		t.Fatalf("NewServer() unexpected error: %v", err)
	}

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func TestNewServerValidatesConfig(t *testing.T) {
	kit := testKit(t, config.Tools{})
	logger := log.NewNop()

	if _, err := NewServer(Config{Version: "1"}, kit, logger); err == nil {
		t.Error("NewServer() without name expected error")
	}
	if _, err := NewServer(Config{Name: "llmchat"}, kit, logger); err == nil {
		t.Error("NewServer() without version expected error")
	}
	if _, err := NewServer(Config{Name: "llmchat", Version: "1"}, nil, logger); err == nil {
		t.Error("NewServer() without kit expected error")
	}
}

func TestListToolsOmitsUnconfiguredSearch(t *testing.T) {
	session := connectServer(t, testKit(t, config.Tools{}))

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)

	want := []string{"current_time", "github_trending", "url_reader", "weather"}
	if !slices.Equal(names, want) {
		t.Errorf("ListTools() = %v, want %v", names, want)
	}
}

func TestListToolsIncludesConfiguredSearch(t *testing.T) {
	cfg := config.Tools{}
	cfg.Tavily.APIKey = "tvly-test"
	session := connectServer(t, testKit(t, cfg))

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}

	found := false
	for _, tool := range result.Tools {
		if tool.Name == "tavily_search" {
			found = true
		}
	}
	if !found {
		t.Error("ListTools() missing tavily_search despite configured API key")
	}
}

func TestCallCurrentTime(t *testing.T) {
	session := connectServer(t, testKit(t, config.Tools{}))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "current_time",
	})
	if err != nil {
		t.Fatalf("CallTool(current_time) unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatal("CallTool(current_time) returned error result")
	}
	if len(result.Content) == 0 {
		t.Fatal("CallTool(current_time) returned empty content")
	}

	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] type = %T, want *mcp.TextContent", result.Content[0])
	}
	if text.Text == "" {
		t.Error("CallTool(current_time) returned empty timestamp")
	}
}

func TestCallURLReaderBlocksInternalHosts(t *testing.T) {
	session := connectServer(t, testKit(t, config.Tools{}))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "url_reader",
		Arguments: map[string]any{"url": "http://169.254.169.254/latest/meta-data/"},
	})
	if err != nil {
		t.Fatalf("CallTool(url_reader) unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("CallTool(url_reader) on metadata endpoint expected error result")
	}

	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] type = %T, want *mcp.TextContent", result.Content[0])
	}
	if !strings.Contains(text.Text, tools.ErrCodeSecurity) {
		t.Errorf("error text = %q, want to contain %q", text.Text, tools.ErrCodeSecurity)
	}
}

func TestCallUnknownTool(t *testing.T) {
	session := connectServer(t, testKit(t, config.Tools{}))

	_, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "nonexistent_tool",
	})
	if err == nil {
		t.Fatal("CallTool(nonexistent_tool) expected error, got nil")
	}
}

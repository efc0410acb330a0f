package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/mcp"
	"github.com/kanon0/llmchat/internal/security"
	"github.com/kanon0/llmchat/internal/tools"
)

// runMCP serves the built-in tools over MCP stdio. The gateway itself
// is not started; only the tools section of the config is used.
func runMCP() error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kit := tools.NewKit(cfg.Tools, security.NewFetcher(logger), logger)
	server, err := mcp.NewServer(mcp.Config{Name: "llmchat", Version: AppVersion}, kit, logger)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "name", "llmchat", "version", AppVersion, "transport", "stdio")

	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}

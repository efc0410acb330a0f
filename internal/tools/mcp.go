package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/mcp"

	"github.com/kanon0/llmchat/internal/config"
)

// MCPHost connects to the configured external MCP tool servers and
// exposes their tools alongside the built-ins. A host that fails to
// come up degrades the gateway to built-in tools only; it never blocks
// startup.
type MCPHost struct {
	host     *mcp.MCPHost
	allowed  map[string]bool
	excluded map[string]bool
	logger   *slog.Logger
}

// ConnectMCP starts stdio connections to every configured MCP server.
// Returns (nil, nil) when no servers are configured.
func ConnectMCP(ctx context.Context, g *genkit.Genkit, servers map[string]config.MCPServer, filter config.MCP, logger *slog.Logger) (*MCPHost, error) {
	if len(servers) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]mcp.MCPServerConfig, 0, len(names))
	for _, name := range names {
		srv := servers[name]
		env := make([]string, 0, len(srv.Env))
		for k, v := range srv.Env {
			env = append(env, k+"="+v)
		}
		sort.Strings(env)
		configs = append(configs, mcp.MCPServerConfig{
			Name: name,
			Config: mcp.MCPClientOptions{
				Name: name,
				Stdio: &mcp.StdioConfig{
					Command: srv.Command,
					Args:    srv.Args,
					Env:     env,
				},
			},
		})
	}

	logger.Info("connecting MCP servers", "servers", names)
	host, err := mcp.NewMCPHost(g, mcp.MCPHostOptions{
		Name:       "llmchat",
		Version:    "1.0.0",
		MCPServers: configs,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP host: %w", err)
	}

	return &MCPHost{
		host:     host,
		allowed:  toSet(filter.Allowed),
		excluded: toSet(filter.Excluded),
		logger:   logger,
	}, nil
}

// Tools returns the currently active external tools, filtered by the
// configured allow/exclude lists. Exclusion wins over allowance.
func (h *MCPHost) Tools(ctx context.Context, g *genkit.Genkit) ([]ai.ToolRef, error) {
	tools, err := h.host.GetActiveTools(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	refs := make([]ai.ToolRef, 0, len(tools))
	for _, tool := range tools {
		name := tool.Name()
		if h.excluded[name] {
			continue
		}
		if len(h.allowed) > 0 && !h.allowed[name] {
			continue
		}
		refs = append(refs, tool)
	}
	h.logger.Info("MCP tools active", "total", len(tools), "after_filter", len(refs))
	return refs, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

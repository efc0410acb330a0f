package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kanon0/llmchat/internal/tools"
)

// Server wraps the MCP SDK server around the tool kit.
type Server struct {
	mcpServer *mcp.Server
	kit       *tools.Kit
	logger    *slog.Logger
}

// Config holds MCP server identity.
type Config struct {
	Name    string
	Version string
}

// NewServer creates an MCP server exposing the built-in tools. Tools
// that are not configured (for example search without an API key) are
// not advertised.
func NewServer(cfg Config, kit *tools.Kit, logger *slog.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if kit == nil {
		return nil, fmt.Errorf("tool kit is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		kit:    kit,
		logger: logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run serves MCP protocol traffic on the given transport. Blocks until
// the transport closes or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	if err := s.registerCurrentTime(); err != nil {
		return err
	}
	if err := s.registerSearch(); err != nil {
		return err
	}
	if err := s.registerWeather(); err != nil {
		return err
	}
	if err := s.registerURLReader(); err != nil {
		return err
	}
	return s.registerTrending()
}

// timeInput is the empty input schema for current_time.
type timeInput struct{}

func (s *Server) registerCurrentTime() error {
	inputSchema, err := jsonschema.For[timeInput](nil)
	if err != nil {
		return fmt.Errorf("current_time schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "current_time",
		Description: "Get the current date and time with day of week and timezone.",
		InputSchema: inputSchema,
	}
	mcp.AddTool(s.mcpServer, tool, func(_ context.Context, _ *mcp.CallToolRequest, _ timeInput) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: s.kit.CurrentTime()}},
		}, nil, nil
	})
	return nil
}

func (s *Server) registerSearch() error {
	if !s.kit.HasSearch() {
		s.logger.Warn("tavily_search not exposed over MCP: no API key configured")
		return nil
	}

	inputSchema, err := jsonschema.For[tools.SearchInput](nil)
	if err != nil {
		return fmt.Errorf("tavily_search schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "tavily_search",
		Description: "Search the web for current information. Returns a synthesized answer plus the top results.",
		InputSchema: inputSchema,
	}
	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in tools.SearchInput) (*mcp.CallToolResult, any, error) {
		result, err := s.kit.Search(ctx, in)
		if err != nil {
			return nil, nil, err
		}
		return resultToMCP(result), nil, nil
	})
	return nil
}

func (s *Server) registerWeather() error {
	inputSchema, err := jsonschema.For[tools.WeatherInput](nil)
	if err != nil {
		return fmt.Errorf("weather schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "weather",
		Description: "Get the current weather for a city: conditions, temperature, humidity and wind.",
		InputSchema: inputSchema,
	}
	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in tools.WeatherInput) (*mcp.CallToolResult, any, error) {
		result, err := s.kit.Weather(ctx, in)
		if err != nil {
			return nil, nil, err
		}
		return resultToMCP(result), nil, nil
	})
	return nil
}

func (s *Server) registerURLReader() error {
	inputSchema, err := jsonschema.For[tools.ReadInput](nil)
	if err != nil {
		return fmt.Errorf("url_reader schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "url_reader",
		Description: "Fetch a web page and extract its readable article text. Internal and private-network URLs are rejected.",
		InputSchema: inputSchema,
	}
	mcp.AddTool(s.mcpServer, tool, func(_ context.Context, _ *mcp.CallToolRequest, in tools.ReadInput) (*mcp.CallToolResult, any, error) {
		result, err := s.kit.ReadURL(in)
		if err != nil {
			return nil, nil, err
		}
		return resultToMCP(result), nil, nil
	})
	return nil
}

func (s *Server) registerTrending() error {
	inputSchema, err := jsonschema.For[tools.TrendingInput](nil)
	if err != nil {
		return fmt.Errorf("github_trending schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "github_trending",
		Description: "List currently trending GitHub repositories, optionally filtered by language and time range.",
		InputSchema: inputSchema,
	}
	mcp.AddTool(s.mcpServer, tool, func(_ context.Context, _ *mcp.CallToolRequest, in tools.TrendingInput) (*mcp.CallToolResult, any, error) {
		result, err := s.kit.Trending(in)
		if err != nil {
			return nil, nil, err
		}
		return resultToMCP(result), nil, nil
	})
	return nil
}

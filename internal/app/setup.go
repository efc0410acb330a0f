package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kanon0/llmchat/internal/bot"
	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/engine"
	"github.com/kanon0/llmchat/internal/onebot"
	"github.com/kanon0/llmchat/internal/router"
	"github.com/kanon0/llmchat/internal/security"
	"github.com/kanon0/llmchat/internal/session"
	"github.com/kanon0/llmchat/internal/tools"
	"github.com/kanon0/llmchat/internal/trigger"
)

// Setup builds the gateway from validated configuration. Returns an App
// whose Run serves the OneBot connection; call Close to release
// background resources.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg.Telemetry, logger)

	g, err := provideGenkit(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	fetcher := security.NewFetcher(logger)
	refs := tools.Register(g, tools.Deps{Config: cfg.Tools, Fetcher: fetcher, Logger: logger})

	// External MCP servers are best-effort: a broken server config
	// degrades the tool set, it does not stop the gateway.
	host, err := tools.ConnectMCP(ctx, g, cfg.MCPServers, cfg.MCP, logger)
	if err != nil {
		logger.Warn("connecting MCP servers, external tools unavailable", "error", err)
	} else if host != nil {
		external, err := host.Tools(ctx, g)
		if err != nil {
			logger.Warn("listing MCP tools, external tools unavailable", "error", err)
		} else {
			refs = append(refs, external...)
		}
	}
	toolNames := make([]string, 0, len(refs))
	for _, ref := range refs {
		toolNames = append(toolNames, ref.Name())
	}
	sort.Strings(toolNames)
	logger.Info("tools registered", "count", len(refs), "tools", toolNames)

	a.Store = session.NewStore(cfg.MaxSessions, logger)

	trimmer := engine.Trimmer{
		MaxMessages:  cfg.LLM.MaxContextMessages,
		SystemPrompt: cfg.LLM.SystemPrompt,
	}
	newEngine := func(model string) (bot.Dialogue, error) {
		e, err := engine.New(engine.Config{
			Genkit:    g,
			LLM:       cfg.LLM,
			ModelName: cfg.LLM.FullModelName(model),
			Tools:     refs,
			Trimmer:   trimmer,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	}

	// The client sends replies for the gateway and the gateway handles
	// the client's events; the handler side is wired after construction.
	client := onebot.NewClient(cfg.OneBot, nil, logger)
	a.Client = client

	gw, err := bot.New(bot.Options{
		Store:        a.Store,
		Policy:       trigger.NewPolicy(cfg.Trigger),
		Router:       router.New(cfg.Chunk),
		Sender:       client,
		Settings:     bot.NewSettings(cfg.Trigger, cfg.Chunk),
		NewEngine:    newEngine,
		Model:        cfg.LLM.Model,
		ToolNames:    toolNames,
		Responses:    cfg.Responses,
		Superusers:   cfg.Superusers,
		CommandStart: cfg.CommandStart,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building gateway: %w", err)
	}
	a.Gateway = gw
	client.SetHandler(gw)

	return a, nil
}

// provideGenkit initializes genkit with the configured model provider.
//
// Provider credentials are passed through the environment variables the
// plugins read natively. SAFETY: os.Setenv is not concurrent-safe, but
// Setup runs exactly once at startup before any goroutine is spawned.
func provideGenkit(ctx context.Context, llm config.LLM, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch llm.Provider {
	case config.ProviderOllama:
		host := llm.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		ollamaPlugin := &ollama.Ollama{ServerAddress: host}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no model auto-discovery.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: llm.Model,
			Type: "chat",
		}, nil)
		logger.Info("initialized genkit", "provider", llm.Provider, "model", llm.Model, "host", host)

	case config.ProviderOpenAI:
		if llm.APIKey != "" {
			_ = os.Setenv("OPENAI_API_KEY", llm.APIKey)
		}
		if llm.BaseURL != "" {
			_ = os.Setenv("OPENAI_BASE_URL", llm.BaseURL)
		}
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit", "provider", llm.Provider, "model", llm.Model)

	default: // gemini
		if llm.GoogleAPIKey != "" {
			_ = os.Setenv("GEMINI_API_KEY", llm.GoogleAPIKey)
		}
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit", "provider", config.ProviderGemini, "model", llm.Model)
	}

	return g, nil
}

// provideOtelShutdown installs an OTLP HTTP span exporter on genkit's
// tracer provider. An empty endpoint disables export; the returned
// cleanup is then a no-op.
func provideOtelShutdown(ctx context.Context, cfg config.Telemetry, logger *slog.Logger) func() {
	if cfg.Endpoint == "" {
		return func() {}
	}

	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	logger.Debug("trace export enabled",
		"endpoint", cfg.Endpoint, "service", cfg.ServiceName, "environment", cfg.Environment)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

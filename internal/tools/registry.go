package tools

import (
	"log/slog"
	"slices"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/security"
)

// Deps carries everything a built-in tool may need. Handlers capture
// only the fields they use.
type Deps struct {
	Config  config.Tools
	Fetcher *security.Fetcher
	Logger  *slog.Logger
}

// factory defines one tool with genkit and returns it. A factory
// returning nil declines registration (for example, a missing API key).
type factory func(g *genkit.Genkit, kit *Kit, logger *slog.Logger) ai.Tool

// builtins is the static registration table: the single source of truth
// for which tool names exist. Configuration selects from this table, it
// never extends it.
var builtins = map[string]factory{
	"current_time":    defineCurrentTime,
	"tavily_search":   defineTavilySearch,
	"weather":         defineWeather,
	"url_reader":      defineURLReader,
	"github_trending": defineGithubTrending,
}

// BuiltinNames returns the names of all registerable built-in tools,
// sorted for stable output.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register defines the configured built-in tools with g and returns
// their refs for binding to generate calls. An unknown configured name
// logs a warning and is skipped rather than failing startup; a stale
// config entry must not take the whole gateway down.
func Register(g *genkit.Genkit, deps Deps) []ai.ToolRef {
	enabled := deps.Config.Builtin
	if len(enabled) == 0 {
		enabled = BuiltinNames()
	}
	kit := NewKit(deps.Config, deps.Fetcher, deps.Logger)

	refs := make([]ai.ToolRef, 0, len(enabled))
	for _, name := range enabled {
		f, ok := builtins[name]
		if !ok {
			deps.Logger.Warn("unknown builtin tool in config, skipping",
				"tool", name, "known", BuiltinNames())
			continue
		}
		tool := f(g, kit, deps.Logger)
		if tool == nil {
			continue
		}
		deps.Logger.Debug("registered builtin tool", "tool", name)
		refs = append(refs, tool)
	}
	return refs
}

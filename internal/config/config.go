// Package config loads and validates the llmchat gateway configuration.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (LLMCHAT_ prefix, runtime override)
//  2. Config file (config.toml in the working directory or ~/.llmchat)
//  3. Default values
//
// The file format is TOML. An invalid or missing core configuration is
// fatal at startup: the gateway never starts serving with a broken model
// or transport section.
//
// Error Handling:
//   - Sentinel errors for Go-idiomatic checking with errors.Is()
//   - Wrapped with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNotFound indicates no config file could be located.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrMissingModel indicates llm.model is not set.
	ErrMissingModel = errors.New("missing model name")

	// ErrMissingAPIKey indicates the provider's API key is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the llm.provider value is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTemperature indicates llm.temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxSessions indicates session.max_sessions is not positive.
	ErrInvalidMaxSessions = errors.New("invalid max sessions")

	// ErrInvalidContextWindow indicates llm.max_context_messages is not positive.
	ErrInvalidContextWindow = errors.New("invalid context window")

	// ErrInvalidTriggerMode indicates an unknown trigger mode name.
	ErrInvalidTriggerMode = errors.New("invalid trigger mode")

	// ErrInvalidChunkRate indicates chunk.chars_per_second is not positive.
	ErrInvalidChunkRate = errors.New("invalid chunk pacing rate")

	// ErrMissingTransportURL indicates onebot.url is not set.
	ErrMissingTransportURL = errors.New("missing transport URL")
)

// LLM provider identifiers used in LLM.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Trigger mode identifiers used in Trigger.Modes.
const (
	TriggerAt      = "at"
	TriggerKeyword = "keyword"
	TriggerPrefix  = "prefix"
)

// LLM holds model identity and sampling parameters.
type LLM struct {
	Provider           string        `mapstructure:"provider"`
	Model              string        `mapstructure:"model"`
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	GoogleAPIKey       string        `mapstructure:"google_api_key"`
	OllamaHost         string        `mapstructure:"ollama_host"`
	Temperature        float64       `mapstructure:"temperature"`
	TopP               float64       `mapstructure:"top_p"`
	MaxTokens          int           `mapstructure:"max_tokens"`
	SystemPrompt       string        `mapstructure:"system_prompt"`
	MaxContextMessages int           `mapstructure:"max_context_messages"`
	MaxToolHops        int           `mapstructure:"max_tool_hops"`
	TurnTimeout        time.Duration `mapstructure:"turn_timeout"`
	ToolTimeout        time.Duration `mapstructure:"tool_timeout"`
}

// Trigger controls when an inbound message engages the dialogue engine.
type Trigger struct {
	Modes              []string `mapstructure:"trigger_mode"`
	Words              []string `mapstructure:"trigger_words"`
	EnablePrivate      bool     `mapstructure:"enable_private"`
	EnableGroup        bool     `mapstructure:"enable_group"`
	GroupChatIsolation bool     `mapstructure:"group_chat_isolation"`
	EnableUsername     bool     `mapstructure:"enable_username"`
}

// Chunk configures time-paced chunked delivery of long replies.
type Chunk struct {
	Enable         bool     `mapstructure:"enable"`
	Separators     []string `mapstructure:"words"`
	MaxDelay       float64  `mapstructure:"max_time"` // seconds, cap per chunk
	CharsPerSecond int      `mapstructure:"char_per_s"`
}

// Responses holds the canned user-facing reply strings.
type Responses struct {
	EmptyMessageReplies []string `mapstructure:"empty_message_replies"`
	GeneralError        string   `mapstructure:"general_error"`
	DisabledMessage     string   `mapstructure:"disabled_message"`
}

// Tavily configures the built-in web search tool.
type Tavily struct {
	APIKey     string `mapstructure:"api_key"`
	MaxResults int    `mapstructure:"max_results"`
}

// Weather configures the built-in weather tool.
type Weather struct {
	Endpoint string `mapstructure:"endpoint"`
}

// Tools selects which built-in tools are registered and carries their
// per-tool settings. Unknown names in Builtin are a startup warning, not
// an error.
type Tools struct {
	Builtin []string `mapstructure:"builtin"`
	Tavily  Tavily   `mapstructure:"tavily"`
	Weather Weather  `mapstructure:"weather"`
}

// MCPServer describes one external MCP tool server launched over stdio.
type MCPServer struct {
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// MCP holds client-side filters for configured MCP servers.
// Excluded takes precedence over Allowed.
type MCP struct {
	Allowed  []string `mapstructure:"allowed"`
	Excluded []string `mapstructure:"excluded"`
}

// OneBot configures the IM transport adapter.
type OneBot struct {
	URL               string        `mapstructure:"url"`
	AccessToken       string        `mapstructure:"access_token"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
}

// Telemetry configures OTLP trace export. Empty endpoint disables tracing.
type Telemetry struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// Config is the full gateway configuration.
type Config struct {
	LLM         LLM                  `mapstructure:"llm"`
	Trigger     Trigger              `mapstructure:"plugin_settings"`
	Chunk       Chunk                `mapstructure:"chunk"`
	Responses   Responses            `mapstructure:"responses"`
	Tools       Tools                `mapstructure:"tools"`
	MCP         MCP                  `mapstructure:"mcp"`
	MCPServers  map[string]MCPServer `mapstructure:"mcp_servers"`
	OneBot      OneBot               `mapstructure:"onebot"`
	Telemetry   Telemetry            `mapstructure:"telemetry"`
	MaxSessions int                  `mapstructure:"max_sessions"`
	Superusers  []int64              `mapstructure:"superusers"`
	CommandStart string              `mapstructure:"command_start"`
}

// Load reads config.toml, applies defaults and environment overrides, and
// validates the result. Search order: current directory, then ~/.llmchat.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".llmchat"))
	}

	v.SetEnvPrefix("LLMCHAT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: create config.toml in the working directory or ~/.llmchat", ErrConfigNotFound)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFrom reads a specific config file. Used by tests and the --config flag.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 1.0)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.max_context_messages", 10)
	v.SetDefault("llm.max_tool_hops", 8)
	v.SetDefault("llm.turn_timeout", "90s")
	v.SetDefault("llm.tool_timeout", "30s")
	v.SetDefault("llm.ollama_host", "http://localhost:11434")

	v.SetDefault("plugin_settings.trigger_mode", []string{TriggerAt})
	v.SetDefault("plugin_settings.enable_private", true)
	v.SetDefault("plugin_settings.enable_group", true)
	v.SetDefault("plugin_settings.group_chat_isolation", true)

	v.SetDefault("max_sessions", 1000)
	v.SetDefault("command_start", "?")

	v.SetDefault("chunk.words", []string{"||"})
	v.SetDefault("chunk.max_time", 5.0)
	v.SetDefault("chunk.char_per_s", 5)

	v.SetDefault("responses.empty_message_replies", []string{"Hello!", "I'm listening.", "Yes?"})
	v.SetDefault("responses.general_error", "Something went wrong while handling that, let's talk about something else.")
	v.SetDefault("responses.disabled_message", "The bot is disabled here.")

	v.SetDefault("tools.tavily.max_results", 2)
	v.SetDefault("tools.weather.endpoint", "https://api.open-meteo.com/v1/forecast")

	v.SetDefault("onebot.reconnect_interval", "5s")

	v.SetDefault("telemetry.service_name", "llmchat")
	v.SetDefault("telemetry.environment", "dev")
}

// FullModelName returns the provider-qualified name for model, e.g.
// "googleai/gemini-2.5-flash", "openai/gpt-4o" or "ollama/llama3.3".
// A model already containing "/" is returned as-is, which lets admins
// switch to a model from another registered provider at runtime.
func (l LLM) FullModelName(model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	switch l.Provider {
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + model
	case ProviderOllama:
		return ProviderOllama + "/" + model
	default:
		return "googleai/" + model
	}
}

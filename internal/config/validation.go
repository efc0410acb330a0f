package config

import (
	"fmt"
	"slices"
)

// Validate checks the configuration for values the gateway cannot start
// with. It returns the first problem found, wrapped around the matching
// sentinel error.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model is required", ErrMissingModel)
	}

	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.GoogleAPIKey == "" {
			return fmt.Errorf("%w: llm.google_api_key is required for provider %q", ErrMissingAPIKey, c.LLM.Provider)
		}
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%w: llm.api_key is required for provider %q", ErrMissingAPIKey, c.LLM.Provider)
		}
	case ProviderOllama:
		// Local server, no credentials.
	default:
		return fmt.Errorf("%w: %q (expected %s, %s or %s)",
			ErrInvalidProvider, c.LLM.Provider, ProviderGemini, ProviderOpenAI, ProviderOllama)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: %v (expected 0..2)", ErrInvalidTemperature, c.LLM.Temperature)
	}

	if c.LLM.MaxContextMessages <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidContextWindow, c.LLM.MaxContextMessages)
	}

	if c.MaxSessions <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxSessions, c.MaxSessions)
	}

	validModes := []string{TriggerAt, TriggerKeyword, TriggerPrefix}
	for _, mode := range c.Trigger.Modes {
		if !slices.Contains(validModes, mode) {
			return fmt.Errorf("%w: %q (expected %v)", ErrInvalidTriggerMode, mode, validModes)
		}
	}

	if c.Chunk.Enable && c.Chunk.CharsPerSecond <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkRate, c.Chunk.CharsPerSecond)
	}

	if c.OneBot.URL == "" {
		return fmt.Errorf("%w: onebot.url is required", ErrMissingTransportURL)
	}

	return nil
}

// IsSuperuser reports whether userID is in the configured superuser list.
func (c *Config) IsSuperuser(userID int64) bool {
	return slices.Contains(c.Superusers, userID)
}

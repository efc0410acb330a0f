package tools

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/security"
)

// Kit bundles the built-in tool handlers behind plain methods. The
// genkit registration closures and the MCP server mode both call
// through it, so tool behavior stays identical on either surface.
type Kit struct {
	search   *searchHandler // nil when no API key is configured
	weather  *weatherHandler
	reader   *readerHandler
	trending *trendingHandler
	logger   *slog.Logger
}

// NewKit wires the handlers from configuration.
func NewKit(cfg config.Tools, fetcher *security.Fetcher, logger *slog.Logger) *Kit {
	k := &Kit{logger: logger}

	if cfg.Tavily.APIKey != "" {
		maxResults := cfg.Tavily.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}
		k.search = &searchHandler{
			endpoint:   tavilyEndpoint,
			apiKey:     cfg.Tavily.APIKey,
			maxResults: maxResults,
			client:     &http.Client{Timeout: 15 * time.Second},
			logger:     logger,
		}
	}

	k.weather = &weatherHandler{
		forecastURL: openMeteoForecast,
		geocodeURL:  openMeteoGeocode,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
	if cfg.Weather.Endpoint != "" {
		k.weather.forecastURL = cfg.Weather.Endpoint
	}

	k.reader = &readerHandler{fetcher: fetcher}
	k.trending = &trendingHandler{baseURL: githubBaseURL, logger: logger}
	return k
}

// HasSearch reports whether web search is configured.
func (k *Kit) HasSearch() bool {
	return k.search != nil
}

// CurrentTime returns the formatted current timestamp.
func (k *Kit) CurrentTime() string {
	return time.Now().Format("2006-01-02 15:04:05 (Monday) MST")
}

// Search runs a web search.
func (k *Kit) Search(ctx context.Context, in SearchInput) (Result, error) {
	if k.search == nil {
		return errResult(ErrCodeInput, "web search is not configured"), nil
	}
	return k.search.search(ctx, in)
}

// Weather looks up current conditions for a city.
func (k *Kit) Weather(ctx context.Context, in WeatherInput) (Result, error) {
	return k.weather.lookup(ctx, in)
}

// ReadURL fetches a page and extracts its readable article text.
func (k *Kit) ReadURL(in ReadInput) (Result, error) {
	return k.reader.read(in)
}

// Trending lists trending GitHub repositories.
func (k *Kit) Trending(in TrendingInput) (Result, error) {
	return k.trending.fetch(in)
}

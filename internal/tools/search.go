package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// SearchInput is the input schema for tavily_search.
type SearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query, phrased as you would type into a search engine"`
}

type searchHandler struct {
	endpoint   string
	apiKey     string
	maxResults int
	client     *http.Client
	logger     *slog.Logger
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (h *searchHandler) search(ctx context.Context, in SearchInput) (Result, error) {
	if in.Query == "" {
		return errResult(ErrCodeInput, "query must not be empty"), nil
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:        h.apiKey,
		Query:         in.Query,
		MaxResults:    h.maxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("search request failed", "query", in.Query, "error", err)
		return errResult(ErrCodeNetwork, fmt.Sprintf("search request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.logger.Warn("search returned non-OK status", "query", in.Query, "status", resp.StatusCode)
		return errResult(ErrCodeNetwork, fmt.Sprintf("search service returned status %d", resp.StatusCode)), nil
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return errResult(ErrCodeNetwork, fmt.Sprintf("decoding search response: %v", err)), nil
	}

	results := make([]map[string]any, 0, len(tr.Results))
	for _, r := range tr.Results {
		results = append(results, map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"content": r.Content,
		})
	}

	return okResult(fmt.Sprintf("%d results for %q", len(results), in.Query), map[string]any{
		"answer":  tr.Answer,
		"results": results,
	}), nil
}

func defineTavilySearch(g *genkit.Genkit, kit *Kit, logger *slog.Logger) ai.Tool {
	if !kit.HasSearch() {
		logger.Warn("tavily_search disabled: no API key configured")
		return nil
	}

	return genkit.DefineTool(
		g,
		"tavily_search",
		"Search the web for current information. "+
			"Returns a short synthesized answer plus the top results with title, URL and content snippet. "+
			"Use this for questions about recent events or anything outside your training data.",
		func(ctx *ai.ToolContext, in SearchInput) (Result, error) {
			return kit.Search(ctx.Context, in)
		},
	)
}

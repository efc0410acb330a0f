package tools

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/gocolly/colly/v2"
)

const githubBaseURL = "https://github.com"

// maxTrendingRepos caps how many entries one call feeds to the model.
const maxTrendingRepos = 10

// TrendingInput is the input schema for github_trending.
type TrendingInput struct {
	Language string `json:"language,omitempty" jsonschema_description:"Programming language filter, e.g. 'go' or 'rust'. Empty for all languages"`
	Since    string `json:"since,omitempty" jsonschema_description:"Time range: daily, weekly or monthly. Defaults to daily"`
}

type trendingRepo struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Stars       string `json:"stars,omitempty"`
}

type trendingHandler struct {
	baseURL string
	logger  *slog.Logger
}

func (h *trendingHandler) fetch(in TrendingInput) (Result, error) {
	since := in.Since
	switch since {
	case "":
		since = "daily"
	case "daily", "weekly", "monthly":
	default:
		return errResult(ErrCodeInput, fmt.Sprintf("invalid time range %q (daily, weekly or monthly)", in.Since)), nil
	}

	target := h.baseURL + "/trending"
	if in.Language != "" {
		target += "/" + url.PathEscape(strings.ToLower(in.Language))
	}
	target += "?since=" + since

	var repos []trendingRepo

	c := colly.NewCollector(colly.UserAgent("llmchat/1.0"))
	c.SetRequestTimeout(15 * time.Second)

	c.OnHTML("article.Box-row", func(e *colly.HTMLElement) {
		if len(repos) >= maxTrendingRepos {
			return
		}
		repo := parseTrendingRow(e.DOM)
		if repo.Name == "" {
			return
		}
		repo.URL = h.baseURL + "/" + repo.Name
		repos = append(repos, repo)
	})

	if err := c.Visit(target); err != nil {
		h.logger.Warn("trending fetch failed", "url", target, "error", err)
		return errResult(ErrCodeNetwork, fmt.Sprintf("fetching trending repositories: %v", err)), nil
	}

	if len(repos) == 0 {
		return errResult(ErrCodeNotFound, "no trending repositories found"), nil
	}

	data := make([]map[string]any, 0, len(repos))
	for _, r := range repos {
		data = append(data, map[string]any{
			"name":        r.Name,
			"url":         r.URL,
			"description": r.Description,
			"language":    r.Language,
			"stars":       r.Stars,
		})
	}
	return okResult(fmt.Sprintf("%d trending repositories (%s)", len(repos), since),
		map[string]any{"repositories": data}), nil
}

// parseTrendingRow extracts one repository from a trending list row.
func parseTrendingRow(row *goquery.Selection) trendingRepo {
	var repo trendingRepo

	if href, ok := row.Find("h2 a").Attr("href"); ok {
		repo.Name = strings.Trim(href, "/")
	}
	repo.Description = strings.TrimSpace(row.Find("p").First().Text())
	repo.Language = strings.TrimSpace(row.Find(`span[itemprop="programmingLanguage"]`).Text())
	repo.Stars = strings.TrimSpace(row.Find(`a[href$="/stargazers"]`).First().Text())
	return repo
}

func defineGithubTrending(g *genkit.Genkit, kit *Kit, _ *slog.Logger) ai.Tool {
	return genkit.DefineTool(
		g,
		"github_trending",
		"List currently trending GitHub repositories, optionally filtered by programming language "+
			"and time range (daily, weekly, monthly). Returns name, URL, description, language and stars.",
		func(_ *ai.ToolContext, in TrendingInput) (Result, error) {
			return kit.Trending(in)
		},
	)
}

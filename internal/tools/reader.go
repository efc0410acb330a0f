package tools

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	readability "github.com/go-shiori/go-readability"

	"github.com/kanon0/llmchat/internal/security"
)

// maxArticleRunes bounds extracted article text so one page cannot
// flood the model's context.
const maxArticleRunes = 8000

// ReadInput is the input schema for url_reader.
type ReadInput struct {
	URL string `json:"url" jsonschema_description:"The http(s) URL of the page to read"`
}

type readerHandler struct {
	fetcher *security.Fetcher
}

func (h *readerHandler) read(in ReadInput) (Result, error) {
	parsed, err := url.Parse(in.URL)
	if err != nil {
		return errResult(ErrCodeInput, fmt.Sprintf("invalid URL: %v", err)), nil
	}

	body, err := h.fetcher.Get(in.URL)
	if err != nil {
		return errResult(ErrCodeSecurity, fmt.Sprintf("fetching %q: %v", in.URL, err)), nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return errResult(ErrCodeNetwork, fmt.Sprintf("extracting article from %q: %v", in.URL, err)), nil
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return errResult(ErrCodeNotFound, fmt.Sprintf("no readable content found at %q", in.URL)), nil
	}
	text = truncateRunes(text, maxArticleRunes)

	return okResult(fmt.Sprintf("extracted %q", article.Title), map[string]any{
		"title":   article.Title,
		"byline":  article.Byline,
		"site":    article.SiteName,
		"excerpt": article.Excerpt,
		"content": text,
	}), nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

func defineURLReader(g *genkit.Genkit, kit *Kit, _ *slog.Logger) ai.Tool {
	return genkit.DefineTool(
		g,
		"url_reader",
		"Fetch a web page and extract its readable article text (title, byline, main content). "+
			"Use this when the user shares a link or asks about a specific page. "+
			"Internal and private-network URLs are rejected.",
		func(_ *ai.ToolContext, in ReadInput) (Result, error) {
			return kit.ReadURL(in)
		},
	)
}

package tools

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/kanon0/llmchat/internal/log"
)

const trendingHTML = `<!DOCTYPE html>
<html><body>
<article class="Box-row">
  <h2><a href="/golang/go">golang / go</a></h2>
  <p>The Go programming language</p>
  <span itemprop="programmingLanguage">Go</span>
  <a href="/golang/go/stargazers">130,000</a>
</article>
<article class="Box-row">
  <h2><a href="/rust-lang/rust">rust-lang / rust</a></h2>
  <p>Empowering everyone to build reliable software.</p>
  <span itemprop="programmingLanguage">Rust</span>
  <a href="/rust-lang/rust/stargazers">100,000</a>
</article>
</body></html>`

func TestParseTrendingRow(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trendingHTML))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}

	repo := parseTrendingRow(doc.Find("article.Box-row").First())
	if repo.Name != "golang/go" {
		t.Errorf("Name = %q, want golang/go", repo.Name)
	}
	if repo.Description != "The Go programming language" {
		t.Errorf("Description = %q", repo.Description)
	}
	if repo.Language != "Go" {
		t.Errorf("Language = %q", repo.Language)
	}
	if repo.Stars != "130,000" {
		t.Errorf("Stars = %q", repo.Stars)
	}
}

func TestTrendingFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/trending") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("since") != "weekly" {
			t.Errorf("since = %q, want weekly", r.URL.Query().Get("since"))
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(trendingHTML))
	}))
	defer srv.Close()

	h := &trendingHandler{baseURL: srv.URL, logger: log.NewNop()}
	res, err := h.fetch(TrendingInput{Language: "go", Since: "weekly"})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("fetch() = %+v, want success", res)
	}
	repos, ok := res.Data["repositories"].([]map[string]any)
	if !ok || len(repos) != 2 {
		t.Fatalf("repositories = %v, want 2 entries", res.Data["repositories"])
	}
	if repos[0]["name"] != "golang/go" {
		t.Errorf("first repo = %v", repos[0]["name"])
	}
	if repos[0]["url"] != srv.URL+"/golang/go" {
		t.Errorf("first repo url = %v", repos[0]["url"])
	}
}

func TestTrendingInvalidRange(t *testing.T) {
	h := &trendingHandler{baseURL: "http://unused.invalid", logger: log.NewNop()}
	res, err := h.fetch(TrendingInput{Since: "hourly"})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if res.Status != StatusError || res.Error.Code != ErrCodeInput {
		t.Errorf("fetch() = %+v, want input error", res)
	}
}

func TestBuiltinNamesStable(t *testing.T) {
	names := BuiltinNames()
	want := []string{"current_time", "github_trending", "tavily_search", "url_reader", "weather"}
	if len(names) != len(want) {
		t.Fatalf("BuiltinNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("BuiltinNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

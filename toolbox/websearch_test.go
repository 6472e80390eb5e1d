package toolbox

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const searchResultsPage = `<html><body>
<div class="result">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=x">Go <b>Documentation</b></a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://pkg.go.dev/net/http">net/http package</a>
</div>
</body></html>`

func TestWebSearchFormatsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "golang http server" {
			t.Errorf("query = %q", r.URL.Query().Get("q"))
		}
		io.WriteString(w, searchResultsPage)
	}))
	defer server.Close()

	e := newTestExecutor(t)
	e.searchURL = server.URL

	result := run(t, e, "web_search", map[string]any{"query": "golang http server"})
	if result.IsError {
		t.Fatalf("web_search: %s", result.Content)
	}
	if !strings.Contains(result.Content, "Go Documentation") {
		t.Errorf("title with markup not cleaned: %q", result.Content)
	}
	if !strings.Contains(result.Content, "https://go.dev/doc/") {
		t.Errorf("redirect link not unwrapped: %q", result.Content)
	}
	if !strings.Contains(result.Content, "https://pkg.go.dev/net/http") {
		t.Errorf("direct link missing: %q", result.Content)
	}
}

func TestWebSearchNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>nothing here</body></html>")
	}))
	defer server.Close()

	e := newTestExecutor(t)
	e.searchURL = server.URL

	result := run(t, e, "web_search", map[string]any{"query": "xyzzy"})
	if result.IsError {
		t.Fatalf("no results must not be an error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "No results") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestWebSearchDegradesOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := newTestExecutor(t)
	e.searchURL = server.URL

	result := run(t, e, "web_search", map[string]any{"query": "anything"})
	if result.IsError {
		t.Fatal("search failures degrade to text, never error results")
	}
	if !strings.Contains(result.Content, "failed") {
		t.Errorf("content = %q", result.Content)
	}
}

func TestWebSearchNetworkFailure(t *testing.T) {
	e := newTestExecutor(t)
	e.searchURL = "http://127.0.0.1:1"

	result := run(t, e, "web_search", map[string]any{"query": "anything"})
	if result.IsError {
		t.Fatal("network failure degrades to text")
	}
}

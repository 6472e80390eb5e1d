package toolbox

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	searchEndpoint   = "https://html.duckduckgo.com/html/"
	maxSearchResults = 5
)

// resultLinkRe matches result anchors in the DuckDuckGo HTML endpoint. The
// page is static HTML built for non-JS clients, which keeps this stable
// enough to scrape without a DOM parser.
var resultLinkRe = regexp.MustCompile(`<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// webSearch returns formatted results, degrading network and parse failures
// to explanatory text rather than error-flagged outcomes.
func (e *Executor) webSearch(ctx context.Context, args map[string]any) (string, error) {
	query, err := requiredString(args, "query")
	if err != nil {
		return "", err
	}

	base := e.searchURL
	if base == "" {
		base = searchEndpoint
	}
	reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	endpoint := base + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(reqCtx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Sprintf("Web search unavailable: %v", err), nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; devpad/1.0)")

	resp, err := e.httpc.Do(req)
	if err != nil {
		return fmt.Sprintf("Web search failed: %v", err), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Web search failed: search service returned status %d", resp.StatusCode), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return fmt.Sprintf("Web search failed: %v", err), nil
	}

	matches := resultLinkRe.FindAllStringSubmatch(string(body), maxSearchResults)
	if len(matches) == 0 {
		return fmt.Sprintf("No results found for %q", query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Results for %q:\n", query)
	for i, m := range matches {
		title := strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[2], "")))
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, title, resolveResultURL(m[1]))
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// resolveResultURL unwraps DuckDuckGo's redirect links, which carry the real
// destination in a uddg query parameter.
func resolveResultURL(href string) string {
	decoded := html.UnescapeString(href)
	u, err := url.Parse(decoded)
	if err != nil {
		return decoded
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" {
		return "https:" + decoded
	}
	return decoded
}

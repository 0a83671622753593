package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/pharmascope/pharmascope/internal/config"
)

// searchAPILimit is the maximum results per request the custom search API allows.
const searchAPILimit = 10

// SearchTool queries the Google Custom Search API. Without credentials it is
// a silent no-op that returns empty results.
type SearchTool struct {
	cfg     config.SearchToolConfig
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewSearchTool creates a search tool from configuration.
func NewSearchTool(cfg config.SearchToolConfig) *SearchTool {
	client, limiter := newLimitedClient()
	return &SearchTool{
		cfg:     cfg,
		baseURL: "https://www.googleapis.com/customsearch/v1",
		client:  client,
		limiter: limiter,
	}
}

// Available reports whether the tool is enabled and has credentials.
func (t *SearchTool) Available() bool {
	return t.cfg.Enabled && t.cfg.APIKey != "" && t.cfg.EngineID != ""
}

// Search executes a web search. Missing credentials or any request failure
// yield empty results, never an error: search is best-effort enrichment.
func (t *SearchTool) Search(ctx context.Context, query string, numResults int) []SearchResult {
	if !t.Available() {
		return nil
	}
	if numResults <= 0 || numResults > searchAPILimit {
		numResults = searchAPILimit
	}

	if err := wait(ctx, t.limiter); err != nil {
		return nil
	}

	params := url.Values{}
	params.Set("key", t.cfg.APIKey)
	params.Set("cx", t.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("tools: failed to create search request: %v", err)
		return nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("tools: search request failed: %v", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Printf("tools: search returned status %d", resp.StatusCode)
		return nil
	}

	var data struct {
		Items []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			Snippet     string `json:"snippet"`
			DisplayLink string `json:"displayLink"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Printf("tools: failed to decode search response: %v", err)
		return nil
	}

	results := make([]SearchResult, 0, len(data.Items))
	for _, item := range data.Items {
		results = append(results, SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
			Source:  item.DisplayLink,
		})
	}

	log.Printf("tools: search returned %d results for %q", len(results), query)
	return results
}

// Package tools provides the optional external data sources consumed by the
// research collaborator: web search, the openFDA drug database, and
// ClinicalTrials.gov.
//
// Every tool is an optional capability: missing credentials or a disabled
// flag downgrade it to returning no results rather than failing the
// pipeline. Each tool rate-limits its own outbound requests.
package tools

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// SearchResult is one hit from the web search tool.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// DrugRecord is one entry from the openFDA drug database.
type DrugRecord struct {
	ApplicationNumber string `json:"application_number"`
	SponsorName       string `json:"sponsor_name"`
	BrandName         string `json:"brand_name,omitempty"`
	ApprovalStatus    string `json:"approval_status,omitempty"`
}

// TrialRecord is one study from ClinicalTrials.gov.
type TrialRecord struct {
	NCTID     string `json:"nct_id"`
	Title     string `json:"title"`
	Phase     string `json:"phase,omitempty"`
	Status    string `json:"status,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// newLimitedClient builds the HTTP client and limiter shared by all tools:
// a sustained 2 req/s with burst 5, and a 15-second request timeout.
func newLimitedClient() (*http.Client, *rate.Limiter) {
	return &http.Client{Timeout: 15 * time.Second},
		rate.NewLimiter(rate.Limit(2), 5)
}

// wait blocks until the limiter admits a request or the context is done.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	return limiter.Wait(ctx)
}

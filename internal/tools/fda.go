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

// FDATool queries the openFDA drug approval database. The API works without
// credentials at a reduced rate limit, so only the enabled flag gates it.
type FDATool struct {
	cfg     config.APIToolConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewFDATool creates an openFDA tool from configuration.
func NewFDATool(cfg config.APIToolConfig) *FDATool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.fda.gov"
	}
	client, limiter := newLimitedClient()
	return &FDATool{cfg: cfg, client: client, limiter: limiter}
}

// Available reports whether the tool is enabled.
func (t *FDATool) Available() bool {
	return t.cfg.Enabled
}

// SearchDrugs looks up drug applications sponsored by the given company.
// Best effort: failures are logged and yield empty results.
func (t *FDATool) SearchDrugs(ctx context.Context, sponsor string, limit int) []DrugRecord {
	if !t.Available() {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	if err := wait(ctx, t.limiter); err != nil {
		return nil
	}

	params := url.Values{}
	params.Set("search", fmt.Sprintf("sponsor_name:%q", sponsor))
	params.Set("limit", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.cfg.BaseURL+"/drug/drugsfda.json?"+params.Encode(), nil)
	if err != nil {
		log.Printf("tools: failed to create FDA request: %v", err)
		return nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("tools: FDA request failed: %v", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	// openFDA returns 404 for empty result sets.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("tools: FDA returned status %d", resp.StatusCode)
		return nil
	}

	var data struct {
		Results []struct {
			ApplicationNumber string `json:"application_number"`
			SponsorName       string `json:"sponsor_name"`
			Products          []struct {
				BrandName       string `json:"brand_name"`
				MarketingStatus string `json:"marketing_status"`
			} `json:"products"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Printf("tools: failed to decode FDA response: %v", err)
		return nil
	}

	records := make([]DrugRecord, 0, len(data.Results))
	for _, r := range data.Results {
		rec := DrugRecord{
			ApplicationNumber: r.ApplicationNumber,
			SponsorName:       r.SponsorName,
		}
		if len(r.Products) > 0 {
			rec.BrandName = r.Products[0].BrandName
			rec.ApprovalStatus = r.Products[0].MarketingStatus
		}
		records = append(records, rec)
	}

	log.Printf("tools: FDA returned %d records for %q", len(records), sponsor)
	return records
}

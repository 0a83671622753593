package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pharmascope/pharmascope/internal/config"
)

// ClinicalTrialsTool queries the ClinicalTrials.gov v2 study API.
type ClinicalTrialsTool struct {
	cfg     config.APIToolConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewClinicalTrialsTool creates a ClinicalTrials.gov tool from configuration.
func NewClinicalTrialsTool(cfg config.APIToolConfig) *ClinicalTrialsTool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://clinicaltrials.gov/api/v2"
	}
	client, limiter := newLimitedClient()
	return &ClinicalTrialsTool{cfg: cfg, client: client, limiter: limiter}
}

// Available reports whether the tool is enabled.
func (t *ClinicalTrialsTool) Available() bool {
	return t.cfg.Enabled
}

// SearchTrials looks up studies sponsored by the given company, optionally
// restricted to conditions. Best effort: failures yield empty results.
func (t *ClinicalTrialsTool) SearchTrials(ctx context.Context, sponsor string, conditions []string, limit int) []TrialRecord {
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
	params.Set("query.spons", sponsor)
	if len(conditions) > 0 {
		params.Set("query.cond", strings.Join(conditions, " OR "))
	}
	params.Set("pageSize", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.cfg.BaseURL+"/studies?"+params.Encode(), nil)
	if err != nil {
		log.Printf("tools: failed to create trials request: %v", err)
		return nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("tools: trials request failed: %v", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Printf("tools: trials returned status %d", resp.StatusCode)
		return nil
	}

	var data struct {
		Studies []struct {
			ProtocolSection struct {
				IdentificationModule struct {
					NCTID      string `json:"nctId"`
					BriefTitle string `json:"briefTitle"`
				} `json:"identificationModule"`
				StatusModule struct {
					OverallStatus string `json:"overallStatus"`
				} `json:"statusModule"`
				DesignModule struct {
					Phases []string `json:"phases"`
				} `json:"designModule"`
				ConditionsModule struct {
					Conditions []string `json:"conditions"`
				} `json:"conditionsModule"`
			} `json:"protocolSection"`
		} `json:"studies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Printf("tools: failed to decode trials response: %v", err)
		return nil
	}

	records := make([]TrialRecord, 0, len(data.Studies))
	for _, s := range data.Studies {
		ps := s.ProtocolSection
		rec := TrialRecord{
			NCTID:  ps.IdentificationModule.NCTID,
			Title:  ps.IdentificationModule.BriefTitle,
			Status: ps.StatusModule.OverallStatus,
		}
		if len(ps.DesignModule.Phases) > 0 {
			rec.Phase = ps.DesignModule.Phases[0]
		}
		if len(ps.ConditionsModule.Conditions) > 0 {
			rec.Condition = ps.ConditionsModule.Conditions[0]
		}
		records = append(records, rec)
	}

	log.Printf("tools: trials returned %d records for %q", len(records), sponsor)
	return records
}

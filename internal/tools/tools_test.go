package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pharmascope/pharmascope/internal/config"
)

func TestFDASearchDrugs(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{
					"application_number": "NDA123",
					"sponsor_name": "PFIZER",
					"products": [{"brand_name": "EXAMPLEDRUG", "marketing_status": "Prescription"}]
				},
				{
					"application_number": "NDA456",
					"sponsor_name": "PFIZER"
				}
			]
		}`))
	}))
	defer srv.Close()

	tool := NewFDATool(config.APIToolConfig{Enabled: true, BaseURL: srv.URL})

	records := tool.SearchDrugs(context.Background(), "Pfizer", 10)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if gotQuery != `sponsor_name:"Pfizer"` {
		t.Errorf("search param = %q", gotQuery)
	}
	if records[0].BrandName != "EXAMPLEDRUG" || records[0].ApprovalStatus != "Prescription" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].BrandName != "" {
		t.Errorf("record without products carries brand %q", records[1].BrandName)
	}
}

func TestFDAEmptyResultSet(t *testing.T) {
	// openFDA signals no matches with a 404.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"NOT_FOUND"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	tool := NewFDATool(config.APIToolConfig{Enabled: true, BaseURL: srv.URL})
	if records := tool.SearchDrugs(context.Background(), "Nobody", 10); len(records) != 0 {
		t.Errorf("records = %v, want none", records)
	}
}

func TestFDADisabled(t *testing.T) {
	tool := NewFDATool(config.APIToolConfig{Enabled: false})
	if tool.Available() {
		t.Error("disabled tool reports available")
	}
	if records := tool.SearchDrugs(context.Background(), "Pfizer", 10); records != nil {
		t.Errorf("disabled tool returned %v", records)
	}
}

func TestFDAServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tool := NewFDATool(config.APIToolConfig{Enabled: true, BaseURL: srv.URL})
	if records := tool.SearchDrugs(context.Background(), "Pfizer", 10); len(records) != 0 {
		t.Errorf("records = %v, want none on server error", records)
	}
}

func TestClinicalTrialsSearch(t *testing.T) {
	var gotSponsor, gotCond string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSponsor = r.URL.Query().Get("query.spons")
		gotCond = r.URL.Query().Get("query.cond")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"studies": [
				{
					"protocolSection": {
						"identificationModule": {"nctId": "NCT01234567", "briefTitle": "A Study"},
						"statusModule": {"overallStatus": "RECRUITING"},
						"designModule": {"phases": ["PHASE3"]},
						"conditionsModule": {"conditions": ["Breast Cancer"]}
					}
				}
			]
		}`))
	}))
	defer srv.Close()

	tool := NewClinicalTrialsTool(config.APIToolConfig{Enabled: true, BaseURL: srv.URL})

	records := tool.SearchTrials(context.Background(), "Roche", []string{"oncology", "immunology"}, 5)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if gotSponsor != "Roche" {
		t.Errorf("sponsor param = %q", gotSponsor)
	}
	if gotCond != "oncology OR immunology" {
		t.Errorf("condition param = %q", gotCond)
	}
	rec := records[0]
	if rec.NCTID != "NCT01234567" || rec.Phase != "PHASE3" || rec.Status != "RECRUITING" || rec.Condition != "Breast Cancer" {
		t.Errorf("record = %+v", rec)
	}
}

func TestClinicalTrialsDisabled(t *testing.T) {
	tool := NewClinicalTrialsTool(config.APIToolConfig{Enabled: false})
	if records := tool.SearchTrials(context.Background(), "Roche", nil, 5); records != nil {
		t.Errorf("disabled tool returned %v", records)
	}
}

func TestSearchToolResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" || r.URL.Query().Get("cx") != "e" {
			http.Error(w, "bad credentials", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"title": "News", "link": "https://example.com/a", "snippet": "snippet text", "displayLink": "example.com"}
			]
		}`))
	}))
	defer srv.Close()

	tool := NewSearchTool(config.SearchToolConfig{Enabled: true, APIKey: "k", EngineID: "e"})
	tool.baseURL = srv.URL

	results := tool.Search(context.Background(), "Pfizer pipeline", 3)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Title != "News" || results[0].Source != "example.com" {
		t.Errorf("result = %+v", results[0])
	}
}

func TestSearchToolWithoutCredentials(t *testing.T) {
	tool := NewSearchTool(config.SearchToolConfig{Enabled: true})
	if tool.Available() {
		t.Error("tool without credentials reports available")
	}
	if results := tool.Search(context.Background(), "anything", 3); results != nil {
		t.Errorf("credential-less search returned %v", results)
	}
}

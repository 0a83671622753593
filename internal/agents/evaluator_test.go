package agents

import (
	"context"
	"testing"

	"github.com/pharmascope/pharmascope/internal/config"
	"github.com/pharmascope/pharmascope/pkg/types"
)

func fullAnalysis() *types.AnalysisResult {
	return &types.AnalysisResult{
		KeyInsights:            []string{"a", "b", "c", "d"},
		CompetitivePositioning: map[string]string{"Pfizer": "leader"},
		Trends:                 []string{"trend"},
		Opportunities:          []types.Opportunity{{Opportunity: "gap"}},
		Threats:                []types.Threat{{Threat: "cliff"}},
		Recommendations:        []string{"r1", "r2", "r3"},
		Metrics: map[string]any{
			"total_competitors_analyzed": 2,
			"average_confidence":         0.9,
			"data_freshness":             "current",
		},
	}
}

func TestEvaluateFullAnalysisScoresHigh(t *testing.T) {
	eval := NewRunEvaluator(config.EvaluationConfig{Enabled: true})

	result, err := eval.Evaluate(context.Background(), "oncology", fullAnalysis(), &types.Report{ExecutiveSummary: "summary"})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if result == nil {
		t.Fatal("Evaluate returned nil for enabled evaluator")
	}

	for _, metric := range []string{"accuracy", "completeness", "timeliness", "relevance"} {
		score, ok := result.Scores[metric]
		if !ok {
			t.Errorf("metric %s missing", metric)
			continue
		}
		if score < 0 || score > 1 {
			t.Errorf("%s = %f, out of range", metric, score)
		}
	}

	if result.Scores["timeliness"] != 1.0 {
		t.Errorf("timeliness = %f, want 1.0 for current data", result.Scores["timeliness"])
	}
	if result.Scores["completeness"] != 1.0 {
		t.Errorf("completeness = %f, want 1.0 for full sections", result.Scores["completeness"])
	}
	if result.Scores["relevance"] != 1.0 {
		t.Errorf("relevance = %f, want 1.0", result.Scores["relevance"])
	}
	if result.OverallScore < 0.9 {
		t.Errorf("OverallScore = %f, want >= 0.9", result.OverallScore)
	}
	if result.Grade != "A" {
		t.Errorf("Grade = %q, want A", result.Grade)
	}
	if len(result.Feedback) != 4 {
		t.Errorf("feedback entries = %d, want 4", len(result.Feedback))
	}
}

func TestEvaluateSparseAnalysisScoresLow(t *testing.T) {
	eval := NewRunEvaluator(config.EvaluationConfig{Enabled: true})

	sparse := &types.AnalysisResult{
		Metrics: map[string]any{"total_competitors_analyzed": 0},
	}
	result, err := eval.Evaluate(context.Background(), "q", sparse, &types.Report{})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	if result.Scores["relevance"] != 0.2 {
		t.Errorf("relevance = %f, want 0.2 for zero competitors", result.Scores["relevance"])
	}
	if result.Scores["completeness"] != 0 {
		t.Errorf("completeness = %f, want 0", result.Scores["completeness"])
	}
	if result.Grade == "A" || result.Grade == "B" {
		t.Errorf("Grade = %q, want low grade", result.Grade)
	}
}

func TestEvaluateDisabled(t *testing.T) {
	eval := NewRunEvaluator(config.EvaluationConfig{Enabled: false})

	result, err := eval.Evaluate(context.Background(), "q", fullAnalysis(), &types.Report{})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if result != nil {
		t.Errorf("disabled evaluator returned %+v, want nil", result)
	}
}

func TestEvaluateMetricSubset(t *testing.T) {
	eval := NewRunEvaluator(config.EvaluationConfig{
		Enabled: true,
		Metrics: []string{"timeliness"},
	})

	result, err := eval.Evaluate(context.Background(), "q", fullAnalysis(), nil)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if len(result.Scores) != 1 {
		t.Fatalf("scores = %d, want 1", len(result.Scores))
	}
	if result.OverallScore != result.Scores["timeliness"] {
		t.Errorf("overall = %f, want timeliness score", result.OverallScore)
	}
}

func TestGradeThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.95, "A"},
		{0.9, "A"},
		{0.85, "B"},
		{0.75, "C"},
		{0.65, "D"},
		{0.5, "F"},
	}
	for _, tc := range cases {
		if got := grade(tc.score); got != tc.want {
			t.Errorf("grade(%.2f) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

package agents

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pharmascope/pharmascope/internal/config"
	"github.com/pharmascope/pharmascope/pkg/types"
)

// RunEvaluator scores completed runs with deterministic heuristics over the
// analysis and report contents. No model calls: evaluation must stay cheap
// and reproducible.
type RunEvaluator struct {
	enabled bool
	metrics []string
}

// NewRunEvaluator creates an evaluator from configuration.
func NewRunEvaluator(cfg config.EvaluationConfig) *RunEvaluator {
	metrics := cfg.Metrics
	if len(metrics) == 0 {
		metrics = []string{"accuracy", "completeness", "timeliness", "relevance"}
	}
	return &RunEvaluator{enabled: cfg.Enabled, metrics: metrics}
}

// Evaluate scores the run. A disabled evaluator returns a nil evaluation and
// no error.
func (e *RunEvaluator) Evaluate(ctx context.Context, query string, analysis *types.AnalysisResult, report *types.Report) (*types.Evaluation, error) {
	if !e.enabled {
		return nil, nil
	}

	eval := &types.Evaluation{
		Timestamp: time.Now(),
		Query:     query,
		Scores:    make(map[string]float64, len(e.metrics)),
	}

	for _, metric := range e.metrics {
		switch metric {
		case "accuracy":
			eval.Scores[metric] = scoreAccuracy(analysis)
		case "completeness":
			eval.Scores[metric] = scoreCompleteness(analysis, report)
		case "timeliness":
			eval.Scores[metric] = scoreTimeliness(analysis)
		case "relevance":
			eval.Scores[metric] = scoreRelevance(analysis)
		default:
			log.Printf("agents: unknown evaluation metric %q, skipping", metric)
		}
	}

	var total float64
	for _, s := range eval.Scores {
		total += s
	}
	if len(eval.Scores) > 0 {
		eval.OverallScore = total / float64(len(eval.Scores))
	}
	eval.Grade = grade(eval.OverallScore)
	eval.Feedback = feedback(e.metrics, eval.Scores)

	log.Printf("agents: evaluation complete: %s (%.2f)", eval.Grade, eval.OverallScore)
	return eval, nil
}

// scoreAccuracy blends the average research confidence with the presence of
// supporting insights.
func scoreAccuracy(analysis *types.AnalysisResult) float64 {
	if analysis == nil {
		return 0.3
	}

	avgConfidence := 0.7
	if v, ok := analysis.Metrics["average_confidence"].(float64); ok {
		avgConfidence = v
	}

	accuracy := avgConfidence * 0.7
	if len(analysis.KeyInsights) > 0 {
		accuracy += 0.3
	}
	return clamp(accuracy)
}

// scoreCompleteness checks that every analysis section is populated and the
// report carries an executive summary.
func scoreCompleteness(analysis *types.AnalysisResult, report *types.Report) float64 {
	if analysis == nil {
		return 0
	}

	present := 0
	sections := []bool{
		len(analysis.KeyInsights) > 0,
		len(analysis.CompetitivePositioning) > 0,
		len(analysis.Trends) > 0,
		len(analysis.Opportunities) > 0,
		len(analysis.Threats) > 0,
		len(analysis.Recommendations) > 0,
	}
	for _, ok := range sections {
		if ok {
			present++
		}
	}

	completeness := float64(present) / float64(len(sections))
	if report != nil && report.ExecutiveSummary != "" {
		completeness += 0.2
	}
	return clamp(completeness)
}

// scoreTimeliness maps the data-freshness indicator to a score.
func scoreTimeliness(analysis *types.AnalysisResult) float64 {
	freshness := "unknown"
	if analysis != nil {
		if v, ok := analysis.Metrics["data_freshness"].(string); ok {
			freshness = v
		}
	}

	switch freshness {
	case "current":
		return 1.0
	case "recent":
		return 0.8
	case "historical":
		return 0.6
	default:
		return 0.7
	}
}

// scoreRelevance rates output quantity against the query.
func scoreRelevance(analysis *types.AnalysisResult) float64 {
	if analysis == nil {
		return 0.2
	}

	analyzed := 0
	if v, ok := analysis.Metrics["total_competitors_analyzed"].(int); ok {
		analyzed = v
	}
	if analyzed == 0 {
		return 0.2
	}
	if len(analysis.KeyInsights) == 0 {
		return 0.5
	}

	relevance := 0.7
	if len(analysis.KeyInsights) > 3 {
		relevance += 0.15
	}
	if len(analysis.Recommendations) > 2 {
		relevance += 0.15
	}
	return clamp(relevance)
}

func feedback(metrics []string, scores map[string]float64) []string {
	var out []string
	for _, metric := range metrics {
		score, ok := scores[metric]
		if !ok {
			continue
		}
		switch {
		case score < 0.6:
			out = append(out, fmt.Sprintf("LOW %s: score %.2f, needs improvement", strings.ToUpper(metric), score))
		case score < 0.8:
			out = append(out, fmt.Sprintf("%s: score %.2f, good", metric, score))
		default:
			out = append(out, fmt.Sprintf("%s: score %.2f, excellent", metric, score))
		}
	}
	return out
}

func grade(score float64) string {
	switch {
	case score >= 0.9:
		return "A"
	case score >= 0.8:
		return "B"
	case score >= 0.7:
		return "C"
	case score >= 0.6:
		return "D"
	default:
		return "F"
	}
}

func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}

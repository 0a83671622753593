// Package agents implements the pipeline collaborators: research gathers
// per-competitor intelligence, analysis turns research into structured
// insights, reporting renders the analysis, and evaluation scores a
// completed run. Each collaborator is an interface so the orchestrator can
// be exercised with stubs.
package agents

import (
	"context"

	"github.com/pharmascope/pharmascope/pkg/types"
)

// Researcher gathers competitive intelligence for one competitor.
type Researcher interface {
	// ResearchCompetitor collects findings for the named competitor across
	// the given therapeutic areas. Historical context, when present, lets
	// the researcher focus on what changed. Empty findings are a normal
	// result; an error means the research itself could not run.
	ResearchCompetitor(ctx context.Context, competitor string, areas []string, historical *types.Context) (*types.ResearchResult, error)
}

// Analyst turns research findings into a structured analysis.
type Analyst interface {
	AnalyzeLandscape(ctx context.Context, results []types.ResearchResult, query string, historical *types.Context) (*types.AnalysisResult, error)
}

// Reporter renders an analysis into a report and exports it.
type Reporter interface {
	GenerateReport(ctx context.Context, results []types.ResearchResult, analysis *types.AnalysisResult, query string) (*types.Report, error)

	// Export renders a report in the given format ("markdown" or "json").
	Export(report *types.Report, format string) (string, error)
}

// Evaluator scores the quality of one completed run.
type Evaluator interface {
	Evaluate(ctx context.Context, query string, analysis *types.AnalysisResult, report *types.Report) (*types.Evaluation, error)
}

// Package orchestrator coordinates the research, analysis, and report
// collaborators over sessions, long-term memory, and checkpoints. A run
// walks the pipeline phases in order, checking the pause signal between
// phases; a paused run saves a checkpoint and returns instead of erroring.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pharmascope/pharmascope/internal/agents"
	"github.com/pharmascope/pharmascope/internal/memory"
	"github.com/pharmascope/pharmascope/internal/observability"
	"github.com/pharmascope/pharmascope/internal/session"
	"github.com/pharmascope/pharmascope/pkg/types"
)

// Run outcome statuses.
const (
	StatusCompleted = "completed"
	StatusPaused    = "paused"
)

// RunResult is the outcome of one orchestration run.
type RunResult struct {
	Status              string                 `json:"status"`
	Query               string                 `json:"query"`
	CheckpointID        string                 `json:"checkpoint_id,omitempty"`
	ResearchResults     []types.ResearchResult `json:"research_results,omitempty"`
	Analysis            *types.AnalysisResult  `json:"analysis,omitempty"`
	Report              *types.Report          `json:"report,omitempty"`
	Evaluation          *types.Evaluation      `json:"evaluation,omitempty"`
	SessionID           string                 `json:"session_id,omitempty"`
	ExecutionTime       time.Duration          `json:"execution_time"`
	CompetitorsAnalyzed int                    `json:"competitors_analyzed"`
	ResumedFrom         string                 `json:"resumed_from,omitempty"`
}

// Orchestrator drives the analysis pipeline.
type Orchestrator struct {
	competitors []string
	areas       []string

	researcher agents.Researcher
	analyst    agents.Analyst
	reporter   agents.Reporter
	evaluator  agents.Evaluator

	sessions  *session.Service
	bank      *memory.Bank
	compactor *memory.Compactor
	metrics   *observability.Collector
	signal    *Signal
}

// Options carries the collaborators and services an Orchestrator runs over.
type Options struct {
	Competitors      []string
	TherapeuticAreas []string

	Researcher agents.Researcher
	Analyst    agents.Analyst
	Reporter   agents.Reporter
	Evaluator  agents.Evaluator

	Sessions  *session.Service
	Bank      *memory.Bank
	Compactor *memory.Compactor
	Metrics   *observability.Collector

	// Signal is the pause token checked between phases. Nil installs a
	// fresh, unpaused signal.
	Signal *Signal
}

// New creates an orchestrator from explicit dependencies.
func New(opts Options) *Orchestrator {
	sig := opts.Signal
	if sig == nil {
		sig = NewSignal()
	}
	return &Orchestrator{
		competitors: opts.Competitors,
		areas:       opts.TherapeuticAreas,
		researcher:  opts.Researcher,
		analyst:     opts.Analyst,
		reporter:    opts.Reporter,
		evaluator:   opts.Evaluator,
		sessions:    opts.Sessions,
		bank:        opts.Bank,
		compactor:   opts.Compactor,
		metrics:     opts.Metrics,
		signal:      sig,
	}
}

// Run executes the full pipeline for a query. A non-empty sessionID
// continues an existing session; parallel controls whether competitors are
// researched concurrently. Pause requests take effect after the research and
// analysis phases: the run checkpoints and returns with StatusPaused.
func (o *Orchestrator) Run(ctx context.Context, query, sessionID string, parallel bool) (*RunResult, error) {
	start := time.Now()
	log.Printf("orchestrator: starting analysis for query %q", query)

	// The session is held for the duration of the run; its last_accessed is
	// refreshed on exit whether the pipeline succeeds or not.
	var result *RunResult
	err := o.sessions.With(sessionID, func(sess *session.Session) error {
		r, err := o.runPipeline(ctx, query, sess, parallel)
		if err != nil {
			return err
		}
		r.SessionID = sess.ID
		result = r
		return nil
	})
	if err != nil {
		o.metrics.RecordExecution("orchestrator", time.Since(start), false, err.Error())
		return nil, err
	}

	result.ExecutionTime = time.Since(start)

	if result.Status == StatusCompleted {
		o.metrics.RecordExecution("orchestrator", result.ExecutionTime, true, "")
		log.Printf("orchestrator: analysis completed in %.2fs", result.ExecutionTime.Seconds())
	}
	return result, nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, query string, sess *session.Session, parallel bool) (*RunResult, error) {
	historical := o.bank.RetrieveRelevantMemories(ctx, query, o.competitors, 0)
	historical = o.compactor.Compact(historical)

	log.Printf("orchestrator: phase 1: research (%d competitors, parallel=%v)", len(o.competitors), parallel)
	researchResults, err := o.research(ctx, historical, parallel)
	if err != nil {
		return nil, err
	}

	if o.signal.Paused() {
		return o.checkpointPause(sess.ID, query, session.PhaseResearchComplete, researchResults, nil)
	}

	log.Printf("orchestrator: phase 2: analysis")
	analysis, err := observability.TracedCtx(ctx, o.metrics, "analysis", func(ctx context.Context) (*types.AnalysisResult, error) {
		return o.analyst.AnalyzeLandscape(ctx, researchResults, query, historical)
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: analysis phase failed: %w", err)
	}

	if o.signal.Paused() {
		return o.checkpointPause(sess.ID, query, session.PhaseAnalysisComplete, researchResults, analysis)
	}

	log.Printf("orchestrator: phase 3: report")
	report, err := observability.TracedCtx(ctx, o.metrics, "report", func(ctx context.Context) (*types.Report, error) {
		return o.reporter.GenerateReport(ctx, researchResults, analysis, query)
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: report phase failed: %w", err)
	}

	o.bank.StoreAnalysis(ctx, query, o.competitors, analysis, time.Now())
	o.recordRun(sess, query)

	evaluation, err := o.evaluator.Evaluate(ctx, query, analysis, report)
	if err != nil {
		log.Printf("orchestrator: evaluation failed: %v", err)
	}

	return &RunResult{
		Status:              StatusCompleted,
		Query:               query,
		ResearchResults:     researchResults,
		Analysis:            analysis,
		Report:              report,
		Evaluation:          evaluation,
		CompetitorsAnalyzed: len(o.competitors),
	}, nil
}

// research runs the research collaborator across the competitor set.
// Results are returned in competitor order regardless of completion order.
// The first failure fails the phase.
func (o *Orchestrator) research(ctx context.Context, historical *types.Context, parallel bool) ([]types.ResearchResult, error) {
	results := make([]types.ResearchResult, len(o.competitors))
	errs := make([]error, len(o.competitors))

	runOne := func(i int, competitor string) {
		res, err := observability.TracedCtx(ctx, o.metrics, "research", func(ctx context.Context) (*types.ResearchResult, error) {
			return o.researcher.ResearchCompetitor(ctx, competitor, o.areas, historical)
		})
		if err != nil {
			errs[i] = err
			return
		}
		results[i] = *res
	}

	if parallel {
		var wg sync.WaitGroup
		for i, competitor := range o.competitors {
			wg.Add(1)
			go func(i int, competitor string) {
				defer wg.Done()
				runOne(i, competitor)
			}(i, competitor)
		}
		wg.Wait()
	} else {
		for i, competitor := range o.competitors {
			runOne(i, competitor)
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("orchestrator: research phase failed: %w", err)
		}
	}
	return results, nil
}

// checkpointPause saves a checkpoint at the given phase and reports the run
// as paused.
func (o *Orchestrator) checkpointPause(sessionID, query string, phase session.Phase, research []types.ResearchResult, analysis *types.AnalysisResult) (*RunResult, error) {
	id := o.sessions.SaveCheckpoint(&session.Checkpoint{
		Phase:           phase,
		SessionID:       sessionID,
		Query:           query,
		ResearchResults: research,
		AnalysisResult:  analysis,
	})

	log.Printf("orchestrator: paused at %s, checkpoint %s saved", phase, id)
	return &RunResult{
		Status:       StatusPaused,
		Query:        query,
		CheckpointID: id,
	}, nil
}

// recordRun updates the session bookkeeping and the metric gauges after a
// completed run.
func (o *Orchestrator) recordRun(sess *session.Session, query string) {
	count := sess.AnalysisCount + 1
	now := time.Now()
	_, err := o.sessions.Update(sess.ID, session.Update{
		AnalysisCount: &count,
		LastQuery:     &query,
		LastUpdate:    &now,
		History: []session.Interaction{
			{Timestamp: now, Query: query, Status: StatusCompleted},
		},
	})
	if err != nil {
		// Session was evicted mid-run; the result still stands.
		log.Printf("orchestrator: failed to update session %s: %v", sess.ID, err)
	}

	o.metrics.SetActiveSessions(o.sessions.Len())
	o.metrics.SetMemoryEntries(o.bank.EntryCount(context.Background()))
}

// Pause requests that the in-flight run stop at the next phase boundary.
func (o *Orchestrator) Pause() {
	log.Printf("orchestrator: pause requested")
	o.signal.Pause()
}

// Resume clears the pause signal and, when a checkpoint id is given,
// continues the pipeline from the saved phase. Phases already completed are
// not re-run; the historical context is not rebuilt on resume.
func (o *Orchestrator) Resume(ctx context.Context, checkpointID string) (*RunResult, error) {
	o.signal.Resume()
	if checkpointID == "" {
		return nil, fmt.Errorf("orchestrator: no checkpoint to resume from")
	}

	cp, err := o.sessions.LoadCheckpoint(checkpointID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: resume failed: %w", err)
	}

	start := time.Now()
	log.Printf("orchestrator: resuming from checkpoint %s (phase %s)", cp.ID, cp.Phase)

	var analysis *types.AnalysisResult
	switch cp.Phase {
	case session.PhaseResearchComplete:
		analysis, err = observability.TracedCtx(ctx, o.metrics, "analysis", func(ctx context.Context) (*types.AnalysisResult, error) {
			return o.analyst.AnalyzeLandscape(ctx, cp.ResearchResults, cp.Query, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("orchestrator: analysis phase failed: %w", err)
		}
	case session.PhaseAnalysisComplete:
		analysis = cp.AnalysisResult
	default:
		return nil, fmt.Errorf("orchestrator: checkpoint %s has unknown phase %q", cp.ID, cp.Phase)
	}

	report, err := observability.TracedCtx(ctx, o.metrics, "report", func(ctx context.Context) (*types.Report, error) {
		return o.reporter.GenerateReport(ctx, cp.ResearchResults, analysis, cp.Query)
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: report phase failed: %w", err)
	}

	o.bank.StoreAnalysis(ctx, cp.Query, o.competitors, analysis, time.Now())
	if sess := o.sessions.Get(cp.SessionID); sess != nil {
		o.recordRun(sess, cp.Query)
	}

	elapsed := time.Since(start)
	o.metrics.RecordExecution("orchestrator", elapsed, true, "")
	log.Printf("orchestrator: resume completed in %.2fs", elapsed.Seconds())

	return &RunResult{
		Status:              StatusCompleted,
		Query:               cp.Query,
		ResearchResults:     cp.ResearchResults,
		Analysis:            analysis,
		Report:              report,
		SessionID:           cp.SessionID,
		ExecutionTime:       elapsed,
		CompetitorsAnalyzed: len(cp.ResearchResults),
		ResumedFrom:         cp.ID,
	}, nil
}

// Sessions exposes the session service for the status server and CLI.
func (o *Orchestrator) Sessions() *session.Service { return o.sessions }

// Metrics exposes the metrics collector.
func (o *Orchestrator) Metrics() *observability.Collector { return o.metrics }

// Bank exposes the memory bank.
func (o *Orchestrator) Bank() *memory.Bank { return o.bank }

// Reporter exposes the report collaborator for export operations.
func (o *Orchestrator) Reporter() agents.Reporter { return o.reporter }

// Close releases the memory bank and session service.
func (o *Orchestrator) Close() error {
	o.sessions.Close()
	return o.bank.Close()
}

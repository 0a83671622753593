package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pharmascope/pharmascope/internal/memory"
	"github.com/pharmascope/pharmascope/internal/observability"
	"github.com/pharmascope/pharmascope/internal/session"
	"github.com/pharmascope/pharmascope/pkg/types"
)

type stubResearcher struct {
	// delays staggers completion so parallel runs finish out of order.
	delays map[string]time.Duration
	err    error
}

func (s *stubResearcher) ResearchCompetitor(ctx context.Context, competitor string, areas []string, historical *types.Context) (*types.ResearchResult, error) {
	if d, ok := s.delays[competitor]; ok {
		time.Sleep(d)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &types.ResearchResult{
		Competitor:      competitor,
		Findings:        map[string]string{"synthesis": "findings for " + competitor},
		ConfidenceScore: 0.9,
		Timestamp:       time.Now(),
	}, nil
}

type stubAnalyst struct {
	err   error
	calls int
}

func (s *stubAnalyst) AnalyzeLandscape(ctx context.Context, results []types.ResearchResult, query string, historical *types.Context) (*types.AnalysisResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &types.AnalysisResult{
		KeyInsights: []string{"stub insight"},
		Trends:      []string{"stub trend"},
	}, nil
}

type stubReporter struct {
	err   error
	calls int
}

func (s *stubReporter) GenerateReport(ctx context.Context, results []types.ResearchResult, analysis *types.AnalysisResult, query string) (*types.Report, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &types.Report{ExecutiveSummary: "stub summary"}, nil
}

func (s *stubReporter) Export(report *types.Report, format string) (string, error) {
	return "", nil
}

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(ctx context.Context, query string, analysis *types.AnalysisResult, report *types.Report) (*types.Evaluation, error) {
	return &types.Evaluation{Grade: "A", OverallScore: 0.95}, nil
}

type testFixture struct {
	orch       *Orchestrator
	researcher *stubResearcher
	analyst    *stubAnalyst
	reporter   *stubReporter
	metrics    *observability.Collector
}

func newTestOrchestrator(t *testing.T, competitors []string) *testFixture {
	t.Helper()

	sessions, err := session.NewService(10, 10)
	if err != nil {
		t.Fatalf("failed to create session service: %v", err)
	}
	t.Cleanup(sessions.Close)

	researcher := &stubResearcher{}
	analyst := &stubAnalyst{}
	reporter := &stubReporter{}
	metrics := observability.NewCollector()

	orch := New(Options{
		Competitors: competitors,
		Researcher:  researcher,
		Analyst:     analyst,
		Reporter:    reporter,
		Evaluator:   stubEvaluator{},
		Sessions:    sessions,
		Bank:        memory.NewBank(nil, false),
		Compactor:   memory.NewCompactor(true, 100000),
		Metrics:     metrics,
	})

	return &testFixture{
		orch:       orch,
		researcher: researcher,
		analyst:    analyst,
		reporter:   reporter,
		metrics:    metrics,
	}
}

func TestRunCompletesAndUpdatesSession(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer", "Roche"})

	result, err := f.orch.Run(context.Background(), "oncology landscape", "", true)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if len(result.ResearchResults) != 2 {
		t.Errorf("research results = %d, want 2", len(result.ResearchResults))
	}
	if result.Report == nil || result.Report.ExecutiveSummary != "stub summary" {
		t.Errorf("report = %+v", result.Report)
	}
	if result.Evaluation == nil || result.Evaluation.Grade != "A" {
		t.Errorf("evaluation = %+v", result.Evaluation)
	}
	if result.SessionID == "" {
		t.Fatal("result carries no session id")
	}

	sess := f.orch.Sessions().Get(result.SessionID)
	if sess == nil {
		t.Fatal("session not found after run")
	}
	if sess.AnalysisCount != 1 {
		t.Errorf("AnalysisCount = %d, want 1", sess.AnalysisCount)
	}
	if sess.LastQuery != "oncology landscape" {
		t.Errorf("LastQuery = %q", sess.LastQuery)
	}
	if len(sess.History) != 1 || sess.History[0].Status != StatusCompleted {
		t.Errorf("History = %+v", sess.History)
	}
}

func TestRunReusesSession(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer"})
	ctx := context.Background()

	first, err := f.orch.Run(ctx, "query one", "", true)
	if err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	second, err := f.orch.Run(ctx, "query two", first.SessionID, true)
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}

	if second.SessionID != first.SessionID {
		t.Errorf("session id changed: %q vs %q", second.SessionID, first.SessionID)
	}
	if sess := f.orch.Sessions().Get(first.SessionID); sess.AnalysisCount != 2 {
		t.Errorf("AnalysisCount = %d, want 2", sess.AnalysisCount)
	}
}

// Parallel research results must come back in competitor input order even
// when completions are scrambled.
func TestParallelResearchPreservesOrder(t *testing.T) {
	competitors := []string{"Pfizer", "Roche", "Novartis", "Merck"}
	f := newTestOrchestrator(t, competitors)

	// Earlier competitors finish last.
	f.researcher.delays = map[string]time.Duration{
		"Pfizer":   40 * time.Millisecond,
		"Roche":    30 * time.Millisecond,
		"Novartis": 20 * time.Millisecond,
		"Merck":    10 * time.Millisecond,
	}

	result, err := f.orch.Run(context.Background(), "order check", "", true)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	for i, want := range competitors {
		if got := result.ResearchResults[i].Competitor; got != want {
			t.Errorf("result[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestPauseAfterResearchSavesCheckpoint(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer"})

	f.orch.Pause()
	result, err := f.orch.Run(context.Background(), "paused run", "", true)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if result.Status != StatusPaused {
		t.Fatalf("Status = %q, want paused", result.Status)
	}
	if result.CheckpointID == "" {
		t.Fatal("no checkpoint id on paused result")
	}
	if f.analyst.calls != 0 {
		t.Errorf("analysis ran despite pause (%d calls)", f.analyst.calls)
	}

	cp, err := f.orch.Sessions().LoadCheckpoint(result.CheckpointID)
	if err != nil {
		t.Fatalf("LoadCheckpoint() failed: %v", err)
	}
	if cp.Phase != session.PhaseResearchComplete {
		t.Errorf("Phase = %q, want research_complete", cp.Phase)
	}
	if len(cp.ResearchResults) != 1 {
		t.Errorf("checkpoint research results = %d, want 1", len(cp.ResearchResults))
	}
	if cp.AnalysisResult != nil {
		t.Error("research-phase checkpoint carries an analysis result")
	}
}

func TestResumeFromResearchCheckpoint(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer"})

	f.orch.Pause()
	paused, err := f.orch.Run(context.Background(), "to be resumed", "", true)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	result, err := f.orch.Resume(context.Background(), paused.CheckpointID)
	if err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if result.ResumedFrom != paused.CheckpointID {
		t.Errorf("ResumedFrom = %q, want %q", result.ResumedFrom, paused.CheckpointID)
	}
	if f.analyst.calls != 1 {
		t.Errorf("analyst calls = %d, want 1", f.analyst.calls)
	}
	if f.reporter.calls != 1 {
		t.Errorf("reporter calls = %d, want 1", f.reporter.calls)
	}
	if result.Query != "to be resumed" {
		t.Errorf("Query = %q", result.Query)
	}
}

func TestResumeFromAnalysisCheckpointSkipsAnalysis(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer"})

	id := f.orch.Sessions().SaveCheckpoint(&session.Checkpoint{
		Phase: session.PhaseAnalysisComplete,
		Query: "report only",
		ResearchResults: []types.ResearchResult{
			{Competitor: "Pfizer"},
		},
		AnalysisResult: &types.AnalysisResult{KeyInsights: []string{"saved insight"}},
	})

	result, err := f.orch.Resume(context.Background(), id)
	if err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}

	if f.analyst.calls != 0 {
		t.Errorf("analysis re-ran on analysis_complete checkpoint (%d calls)", f.analyst.calls)
	}
	if f.reporter.calls != 1 {
		t.Errorf("reporter calls = %d, want 1", f.reporter.calls)
	}
	if result.Analysis == nil || result.Analysis.KeyInsights[0] != "saved insight" {
		t.Errorf("analysis = %+v, want checkpointed analysis", result.Analysis)
	}
}

func TestResumeUnknownCheckpoint(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer"})

	if _, err := f.orch.Resume(context.Background(), "missing"); !errors.Is(err, session.ErrCheckpointNotFound) {
		t.Errorf("got %v, want ErrCheckpointNotFound", err)
	}
	if _, err := f.orch.Resume(context.Background(), ""); err == nil {
		t.Error("Resume with empty checkpoint id succeeded")
	}
}

func TestResearchFailurePropagates(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer"})
	f.researcher.err = fmt.Errorf("upstream unavailable")

	_, err := f.orch.Run(context.Background(), "failing run", "", true)
	if err == nil {
		t.Fatal("Run() succeeded despite research failure")
	}

	m := f.metrics.All()
	if m.FailedExecutions == 0 {
		t.Error("failure not recorded in metrics")
	}
}

func TestSignalPauseResume(t *testing.T) {
	sig := NewSignal()
	if sig.Paused() {
		t.Fatal("new signal reports paused")
	}

	sig.Pause()
	sig.Pause()
	if !sig.Paused() {
		t.Fatal("signal not paused after Pause")
	}

	select {
	case <-sig.Done():
	default:
		t.Error("Done channel not closed while paused")
	}

	sig.Resume()
	if sig.Paused() {
		t.Fatal("signal paused after Resume")
	}
	select {
	case <-sig.Done():
		t.Error("Done channel closed after Resume")
	default:
	}
}

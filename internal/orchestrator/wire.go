package orchestrator

import (
	"fmt"
	"log"

	"github.com/pharmascope/pharmascope/internal/agents"
	"github.com/pharmascope/pharmascope/internal/config"
	"github.com/pharmascope/pharmascope/internal/llm"
	"github.com/pharmascope/pharmascope/internal/memory"
	"github.com/pharmascope/pharmascope/internal/observability"
	"github.com/pharmascope/pharmascope/internal/session"
	"github.com/pharmascope/pharmascope/internal/storage"
	"github.com/pharmascope/pharmascope/internal/storage/postgres"
	"github.com/pharmascope/pharmascope/internal/storage/sqlite"
	"github.com/pharmascope/pharmascope/internal/tools"
)

// NewFromConfig assembles a fully wired orchestrator from configuration:
// storage backend, memory bank, compactor, session service, LLM clients,
// external tools, collaborators, and metrics.
func NewFromConfig(cfg *config.Config) (*Orchestrator, error) {
	store, err := openStore(cfg.Memory.MemoryBank)
	if err != nil {
		return nil, err
	}

	bank := memory.NewBank(store, cfg.Memory.MemoryBank.Enabled)
	if embedder, err := llm.NewEmbeddingGenerator(cfg.LLM); err != nil {
		log.Printf("orchestrator: embedding generator unavailable: %v", err)
	} else if embedder != nil {
		bank.SetEmbedder(embedder)
	}

	compactor := memory.NewCompactor(cfg.Memory.Compaction.Enabled, cfg.Memory.Compaction.MaxContextSize)

	sessions, err := session.NewService(cfg.Memory.SessionService.MaxSessions, cfg.Memory.SessionService.MaxCheckpoints)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to create session service: %w", err)
	}

	generator, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to create LLM client: %w", err)
	}

	metrics := observability.NewCollector()

	researcher := agents.NewResearchAgent(
		generator,
		tools.NewSearchTool(cfg.Tools.Search),
		tools.NewFDATool(cfg.Tools.FDA),
		tools.NewClinicalTrialsTool(cfg.Tools.ClinicalTrials),
		metrics,
	)

	return New(Options{
		Competitors:      cfg.Competitors,
		TherapeuticAreas: cfg.TherapeuticAreas,
		Researcher:       researcher,
		Analyst:          agents.NewAnalysisAgent(generator),
		Reporter:         agents.NewReportAgent(generator),
		Evaluator:        agents.NewRunEvaluator(cfg.Evaluation),
		Sessions:         sessions,
		Bank:             bank,
		Compactor:        compactor,
		Metrics:          metrics,
	}), nil
}

// openStore opens the configured storage backend. A disabled memory bank
// needs no store at all.
func openStore(cfg config.MemoryBankConfig) (storage.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.StorageEngine {
	case "sqlite", "":
		store, err := sqlite.NewStore(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: failed to open sqlite store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := postgres.NewStore(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: failed to open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("orchestrator: unknown storage engine %q", cfg.StorageEngine)
	}
}

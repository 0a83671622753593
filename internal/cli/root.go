// Package cli implements the pharmascope CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pharmascope/pharmascope/internal/config"
	"github.com/pharmascope/pharmascope/internal/orchestrator"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "pharmascope",
	Short: "Pharmaceutical competitive landscape analysis",
	Long:  "Multi-phase competitive intelligence: research, analysis, and reporting with session continuity and long-term memory.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: config/agent_config.yaml)")
}

// loadConfig reads the configuration, overlaying competitors and areas from
// flags when given.
func loadConfig(competitors, areas string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if competitors != "" {
		cfg.Competitors = splitList(competitors)
	}
	if areas != "" {
		cfg.TherapeuticAreas = splitList(areas)
	}
	return cfg, nil
}

// newAgent builds a fully wired orchestrator.
func newAgent(competitors, areas string) (*orchestrator.Orchestrator, *config.Config, error) {
	cfg, err := loadConfig(competitors, areas)
	if err != nil {
		return nil, nil, err
	}
	orch, err := orchestrator.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return orch, cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("encode output", err)
	}
	fmt.Println(string(data))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pharmascope/pharmascope/internal/orchestrator"
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run competitive landscape analysis",
		Long:  "Run the research, analysis, and report pipeline for a set of competitors.",
		Run:   runAnalyze,
	}

	cmd.Flags().StringP("competitors", "c", "", "Comma-separated list of competitors (required)")
	cmd.Flags().StringP("area", "a", "", "Comma-separated therapeutic areas")
	cmd.Flags().StringP("query", "q", "", "Specific query (default: built from competitors and areas)")
	cmd.Flags().StringP("output", "o", "json", "Output format: json or text")
	cmd.Flags().StringP("session", "s", "", "Session ID for continuity")
	cmd.Flags().Bool("sequential", false, "Research competitors sequentially instead of in parallel")

	_ = cmd.MarkFlagRequired("competitors")

	RootCmd.AddCommand(cmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	competitors, _ := cmd.Flags().GetString("competitors")
	areas, _ := cmd.Flags().GetString("area")
	query, _ := cmd.Flags().GetString("query")
	output, _ := cmd.Flags().GetString("output")
	sessionID, _ := cmd.Flags().GetString("session")
	sequential, _ := cmd.Flags().GetBool("sequential")

	orch, cfg, err := newAgent(competitors, areas)
	if err != nil {
		exitErr("initialize agent", err)
	}
	defer func() { _ = orch.Close() }()

	if query == "" {
		query = buildQuery(cfg.Competitors, cfg.TherapeuticAreas)
	}

	fmt.Println("Starting pharmaceutical competitive analysis...")
	result, err := orch.Run(context.Background(), query, sessionID, !sequential)
	if err != nil {
		exitErr("analyze", err)
	}

	if output == "json" {
		printJSON(result)
	} else {
		displayTextResult(result)
	}
	fmt.Println("\nAnalysis complete.")
}

func buildQuery(competitors, areas []string) string {
	query := fmt.Sprintf("Analyze competitive landscape for %s", strings.Join(competitors, ", "))
	if len(areas) > 0 {
		query += " in " + strings.Join(areas, ", ")
	}
	return query
}

func displayTextResult(result *orchestrator.RunResult) {
	line := strings.Repeat("=", 60)
	fmt.Println("\n" + line)
	fmt.Println("COMPETITIVE LANDSCAPE ANALYSIS")
	fmt.Println(line)

	fmt.Printf("\nQuery: %s\n", result.Query)
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Competitors analyzed: %d\n", result.CompetitorsAnalyzed)
	fmt.Printf("Execution time: %.2fs\n", result.ExecutionTime.Seconds())

	if result.Status == orchestrator.StatusPaused {
		fmt.Printf("\nCheckpoint saved: %s\n", result.CheckpointID)
		return
	}
	if result.Analysis == nil {
		return
	}

	fmt.Println("\nKEY INSIGHTS:")
	for _, insight := range head(result.Analysis.KeyInsights, 5) {
		fmt.Printf("  - %s\n", insight)
	}

	fmt.Println("\nOPPORTUNITIES:")
	for i, opp := range result.Analysis.Opportunities {
		if i >= 3 {
			break
		}
		fmt.Printf("  - %s\n", opp.Opportunity)
	}

	fmt.Println("\nTHREATS:")
	for i, threat := range result.Analysis.Threats {
		if i >= 3 {
			break
		}
		fmt.Printf("  - %s\n", threat.Threat)
	}

	fmt.Println("\nRECOMMENDATIONS:")
	for _, rec := range head(result.Analysis.Recommendations, 5) {
		fmt.Printf("  - %s\n", rec)
	}

	if result.Evaluation != nil {
		fmt.Printf("\nQUALITY SCORE: %s (%.2f)\n", result.Evaluation.Grade, result.Evaluation.OverallScore)
	}
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

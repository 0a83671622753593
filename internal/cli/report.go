package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run an analysis and export the report to a file",
		Run:   runReport,
	}

	cmd.Flags().StringP("competitors", "c", "", "Comma-separated list of competitors (required)")
	cmd.Flags().StringP("area", "a", "", "Comma-separated therapeutic areas")
	cmd.Flags().StringP("query", "q", "", "Specific query (default: built from competitors and areas)")
	cmd.Flags().StringP("output", "o", "", "Output file path (required)")
	cmd.Flags().StringP("format", "f", "markdown", "Report format: markdown or json")
	cmd.Flags().StringP("session", "s", "", "Session ID for continuity")

	_ = cmd.MarkFlagRequired("competitors")
	_ = cmd.MarkFlagRequired("output")

	RootCmd.AddCommand(cmd)
}

func runReport(cmd *cobra.Command, args []string) {
	competitors, _ := cmd.Flags().GetString("competitors")
	areas, _ := cmd.Flags().GetString("area")
	query, _ := cmd.Flags().GetString("query")
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	sessionID, _ := cmd.Flags().GetString("session")

	orch, cfg, err := newAgent(competitors, areas)
	if err != nil {
		exitErr("initialize agent", err)
	}
	defer func() { _ = orch.Close() }()

	if query == "" {
		query = buildQuery(cfg.Competitors, cfg.TherapeuticAreas)
	}

	fmt.Printf("Generating report in %s format...\n", format)
	result, err := orch.Run(context.Background(), query, sessionID, true)
	if err != nil {
		exitErr("report", err)
	}
	if result.Report == nil {
		exitErr("report", fmt.Errorf("run ended with status %q before a report was produced", result.Status))
	}

	rendered, err := orch.Reporter().Export(result.Report, format)
	if err != nil {
		exitErr("export report", err)
	}
	if err := os.WriteFile(output, []byte(rendered), 0o644); err != nil {
		exitErr("write report", err)
	}

	fmt.Printf("Report saved to: %s\n", output)
}

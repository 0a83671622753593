package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused analysis from a checkpoint",
		Run:   runResume,
	}

	cmd.Flags().StringP("checkpoint", "k", "", "Checkpoint ID (required)")
	cmd.Flags().StringP("competitors", "c", "", "Comma-separated list of competitors")
	cmd.Flags().StringP("area", "a", "", "Comma-separated therapeutic areas")

	_ = cmd.MarkFlagRequired("checkpoint")

	RootCmd.AddCommand(cmd)
}

func runResume(cmd *cobra.Command, args []string) {
	checkpointID, _ := cmd.Flags().GetString("checkpoint")
	competitors, _ := cmd.Flags().GetString("competitors")
	areas, _ := cmd.Flags().GetString("area")

	orch, _, err := newAgent(competitors, areas)
	if err != nil {
		exitErr("initialize agent", err)
	}
	defer func() { _ = orch.Close() }()

	fmt.Printf("Resuming analysis from checkpoint: %s\n", checkpointID)
	result, err := orch.Resume(context.Background(), checkpointID)
	if err != nil {
		exitErr("resume", err)
	}

	printJSON(result)
	fmt.Println("Analysis resumed and completed.")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "View agent metrics",
		Run:   runMetrics,
	}

	RootCmd.AddCommand(cmd)
}

func runMetrics(cmd *cobra.Command, args []string) {
	orch, _, err := newAgent("", "")
	if err != nil {
		exitErr("initialize agent", err)
	}
	defer func() { _ = orch.Close() }()

	out, err := orch.Metrics().Export("json")
	if err != nil {
		exitErr("export metrics", err)
	}
	fmt.Println(out)
}

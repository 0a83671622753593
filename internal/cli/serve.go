package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pharmascope/pharmascope/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the status server",
		Long:  "Serve read-only metrics, session, and checkpoint endpoints plus a WebSocket activity feed.",
		Run:   runServe,
	}

	cmd.Flags().StringP("competitors", "c", "", "Comma-separated list of competitors")
	cmd.Flags().StringP("area", "a", "", "Comma-separated therapeutic areas")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	competitors, _ := cmd.Flags().GetString("competitors")
	areas, _ := cmd.Flags().GetString("area")

	orch, cfg, err := newAgent(competitors, areas)
	if err != nil {
		exitErr("initialize agent", err)
	}
	defer func() { _ = orch.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr, _, err := server.Start(ctx, cfg, orch)
	if err != nil {
		exitErr("start status server", err)
	}

	fmt.Printf("Status server listening on %s. Press Ctrl+C to stop.\n", addr)
	<-ctx.Done()
	fmt.Println("\nServer stopped.")
}

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmascope/pharmascope/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start continuous monitoring (long-running)",
		Long:  "Run the analysis pipeline on a fixed interval until interrupted.",
		Run:   runMonitor,
	}

	cmd.Flags().StringP("competitors", "c", "", "Comma-separated list of competitors (required)")
	cmd.Flags().StringP("area", "a", "", "Comma-separated therapeutic areas")
	cmd.Flags().StringP("interval", "i", "", "Monitoring interval (e.g. 24h, 30m; default from config)")

	_ = cmd.MarkFlagRequired("competitors")

	RootCmd.AddCommand(cmd)
}

func runMonitor(cmd *cobra.Command, args []string) {
	competitors, _ := cmd.Flags().GetString("competitors")
	areas, _ := cmd.Flags().GetString("area")
	intervalFlag, _ := cmd.Flags().GetString("interval")

	orch, cfg, err := newAgent(competitors, areas)
	if err != nil {
		exitErr("initialize agent", err)
	}
	defer func() { _ = orch.Close() }()

	intervalStr := intervalFlag
	if intervalStr == "" {
		intervalStr = cfg.Monitoring.UpdateInterval
	}
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		exitErr("parse interval", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Enabled {
		addr, _, err := server.Start(ctx, cfg, orch)
		if err != nil {
			exitErr("start status server", err)
		}
		fmt.Printf("Status server listening on %s\n", addr)
	}

	fmt.Printf("Starting continuous monitoring (interval %s). Press Ctrl+C to stop.\n", interval)
	orch.StartMonitoring(ctx, interval, false)
	fmt.Println("\nMonitoring stopped.")
}

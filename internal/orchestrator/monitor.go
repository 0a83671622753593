package orchestrator

import (
	"context"
	"log"
	"time"
)

// errBackoff is how long the monitoring loop waits after a failed cycle.
const errBackoff = 5 * time.Minute

// monitoringQuery is the standing query run on every monitoring cycle.
const monitoringQuery = "Check for updates in competitive landscape"

// StartMonitoring runs the pipeline on a fixed interval until the context is
// cancelled or the pause signal fires. A failed cycle backs off for five
// minutes instead of the full interval. With background=true the loop runs
// in its own goroutine and StartMonitoring returns immediately.
func (o *Orchestrator) StartMonitoring(ctx context.Context, interval time.Duration, background bool) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	log.Printf("orchestrator: starting continuous monitoring (interval %s)", interval)

	if background {
		go o.monitorLoop(ctx, interval)
		return
	}
	o.monitorLoop(ctx, interval)
}

func (o *Orchestrator) monitorLoop(ctx context.Context, interval time.Duration) {
	for {
		if ctx.Err() != nil || o.signal.Paused() {
			log.Printf("orchestrator: monitoring stopped")
			return
		}

		wait := interval
		result, err := o.Run(ctx, monitoringQuery, "", true)
		if err != nil {
			log.Printf("orchestrator: monitoring cycle failed: %v", err)
			wait = errBackoff
		} else {
			log.Printf("orchestrator: monitoring cycle completed: %s", result.Status)
		}

		select {
		case <-ctx.Done():
			log.Printf("orchestrator: monitoring stopped")
			return
		case <-o.signal.Done():
			log.Printf("orchestrator: monitoring paused")
			return
		case <-time.After(wait):
		}
	}
}

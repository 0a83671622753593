package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

// A pause request must interrupt the inter-cycle sleep instead of waiting
// out the full interval.
func TestMonitoringPauseInterruptsSleep(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer"})

	done := make(chan struct{})
	go func() {
		f.orch.StartMonitoring(context.Background(), time.Hour, false)
		close(done)
	}()

	// Let the first cycle finish; the loop is now asleep for an hour.
	waitFor(t, func() bool { return f.metrics.All().SuccessfulExecutions > 0 },
		"first monitoring cycle never completed")

	f.orch.Pause()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitoring loop did not stop after pause")
	}
}

func TestMonitoringFailedCycleBacksOffWithoutExiting(t *testing.T) {
	f := newTestOrchestrator(t, []string{"Pfizer"})
	f.researcher.err = errors.New("upstream unavailable")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.orch.StartMonitoring(ctx, 10*time.Millisecond, false)
		close(done)
	}()

	waitFor(t, func() bool { return f.metrics.All().FailedExecutions > 0 },
		"failing cycle never recorded")

	// The loop survives the failure and sits in the error backoff: it is
	// neither exited nor re-running on the short interval.
	select {
	case <-done:
		t.Fatal("monitoring loop exited after a failed cycle")
	case <-time.After(50 * time.Millisecond):
	}
	before := f.metrics.All().TotalExecutions
	time.Sleep(50 * time.Millisecond)
	if after := f.metrics.All().TotalExecutions; after != before {
		t.Errorf("executions grew from %d to %d during backoff", before, after)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitoring loop did not stop on context cancellation")
	}
}

package observability

import (
	"context"
	"log"
	"time"
)

// Traced wraps a unit of work with duration measurement and execution
// recording under the given operation name. The wrapped error is returned
// unchanged; recording itself never fails the caller.
//
// This is explicit middleware composition: callers name the operation and
// pass the work as a closure.
func Traced[T any](c *Collector, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)

	if c != nil {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		c.RecordExecution(name, elapsed, err == nil, errMsg)
	}

	log.Printf("observability: %s completed in %.2fs (err=%v)", name, elapsed.Seconds(), err != nil)
	return result, err
}

// TracedCtx is Traced for context-aware work.
func TracedCtx[T any](ctx context.Context, c *Collector, name string, fn func(context.Context) (T, error)) (T, error) {
	return Traced(c, name, func() (T, error) { return fn(ctx) })
}

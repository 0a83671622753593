// Package observability provides in-process execution metrics and the
// operation-tracing wrapper applied around collaborator calls. Recording is
// fire-and-forget: it never blocks or fails the caller.
package observability

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnsupportedFormat is returned when metrics export is requested in a
// format other than json.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// maxRecentExecutions bounds the recent-executions window in snapshots.
const maxRecentExecutions = 10

// Execution records one traced operation.
type Execution struct {
	Agent     string    `json:"agent"`
	Seconds   float64   `json:"time"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics is an aggregate snapshot of recorded executions.
type Metrics struct {
	TotalExecutions      int            `json:"total_executions"`
	SuccessfulExecutions int            `json:"successful_executions"`
	FailedExecutions     int            `json:"failed_executions"`
	SuccessRate          float64        `json:"success_rate"`
	AverageExecutionTime float64        `json:"average_execution_time"`
	ToolUsage            map[string]int `json:"tool_usage"`
	ActiveSessions       int            `json:"active_sessions"`
	MemoryEntries        int            `json:"memory_entries"`
	RecentExecutions     []Execution    `json:"recent_executions,omitempty"`
}

// Collector accumulates execution and tool-usage metrics.
type Collector struct {
	mu             sync.Mutex
	executions     []Execution
	toolUsage      map[string]int
	activeSessions int
	memoryEntries  int
}

// NewCollector creates an empty metrics collector.
func NewCollector() *Collector {
	return &Collector{toolUsage: make(map[string]int)}
}

// RecordExecution records one operation's outcome and duration.
func (c *Collector) RecordExecution(agent string, duration time.Duration, success bool, errMsg string) {
	status := "success"
	if !success {
		status = "error"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.executions = append(c.executions, Execution{
		Agent:     agent,
		Seconds:   duration.Seconds(),
		Status:    status,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
}

// RecordToolUsage counts one invocation of the named external tool.
func (c *Collector) RecordToolUsage(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toolUsage[tool]++
}

// SetActiveSessions updates the live-session gauge.
func (c *Collector) SetActiveSessions(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeSessions = n
}

// SetMemoryEntries updates the memory-bank entry gauge.
func (c *Collector) SetMemoryEntries(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memoryEntries = n
}

// All returns an aggregate snapshot of every recorded execution.
func (c *Collector) All() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	var successful, failed int
	var totalSeconds float64
	for _, e := range c.executions {
		if e.Status == "success" {
			successful++
		} else {
			failed++
		}
		totalSeconds += e.Seconds
	}

	usage := make(map[string]int, len(c.toolUsage))
	for tool, n := range c.toolUsage {
		usage[tool] = n
	}

	m := Metrics{
		TotalExecutions:      len(c.executions),
		SuccessfulExecutions: successful,
		FailedExecutions:     failed,
		ToolUsage:            usage,
		ActiveSessions:       c.activeSessions,
		MemoryEntries:        c.memoryEntries,
	}
	if len(c.executions) > 0 {
		m.SuccessRate = float64(successful) / float64(len(c.executions))
		m.AverageExecutionTime = totalSeconds / float64(len(c.executions))
	}

	recent := c.executions
	if len(recent) > maxRecentExecutions {
		recent = recent[len(recent)-maxRecentExecutions:]
	}
	m.RecentExecutions = append([]Execution(nil), recent...)

	return m
}

// Export renders the metrics snapshot in the given format. Only "json" is
// supported; anything else fails fast with ErrUnsupportedFormat.
func (c *Collector) Export(format string) (string, error) {
	if format != "json" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	data, err := json.MarshalIndent(c.All(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("observability: failed to marshal metrics: %w", err)
	}
	return string(data), nil
}

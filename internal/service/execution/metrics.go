package execution

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"time"

	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	"github.com/alanyang/agent-exec/internal/domain/metric"
	portheartbeat "github.com/alanyang/agent-exec/internal/port/heartbeat"
)

func (c *Core) performanceMetrics(start time.Time, hb portheartbeat.Heartbeat) map[string]any {
	end := c.now()
	m := map[string]any{
		"execution_time_ms": float64(end.Sub(start).Microseconds()) / 1000,
		"start_timestamp":   unixSeconds(start),
		"end_timestamp":     unixSeconds(end),
	}
	if hb != nil {
		m["heartbeat_count"] = hb.Count()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m["memory_usage_mb"] = float64(mem.HeapAlloc) / (1 << 20)
	m["goroutines"] = runtime.NumGoroutine()
	return m
}

// collectMetrics merges tracker, result and state metrics. Later sources win.
// Metrics are gathered before the tracker completes the record, so the status
// reported is the one the record is about to take.
func (c *Core) collectMetrics(ctx context.Context, r *run, result domainexec.Result) map[string]any {
	tracked, err := c.tracker.CollectMetrics(ctx, r.execID)
	if err != nil {
		slog.WarnContext(ctx, "failed to collect tracker metrics", r.logAttrs("error", err)...)
	}

	m := mergeMetrics(tracked, result.Metrics)
	m["execution_status"] = string(terminalStatus(result))
	m["state_size"] = r.stateSize
	m["result_success"] = result.Success
	m["total_duration_seconds"] = result.DurationSeconds()
	return m
}

// persistMetrics writes one point per numeric metric. A failed write is
// logged and the remaining keys are still written.
func (c *Core) persistMetrics(ctx context.Context, r *run, metrics map[string]any) {
	if c.metrics == nil {
		return
	}

	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	at := c.now().UTC()
	for _, k := range keys {
		value, ok := metric.Numeric(metrics[k])
		if !ok {
			continue
		}
		p := metric.Point{
			ExecutionID: r.execID,
			RunID:       r.ec.RunID,
			AgentName:   r.ec.AgentName,
			UserID:      r.state.UserID,
			Name:        k,
			Value:       value,
			RecordedAt:  at,
		}
		if err := c.metrics.Record(ctx, p); err != nil {
			slog.WarnContext(ctx, "failed to persist metric", r.logAttrs("metric", k, "error", err)...)
		}
	}
}

func terminalStatus(result domainexec.Result) domainexec.Status {
	if result.Success {
		return domainexec.StatusCompleted
	}
	return domainexec.StatusFailed
}

func mergeMetrics(sources ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

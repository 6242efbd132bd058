package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	completionStartedTotal   atomic.Uint64
	completionCompletedTotal atomic.Uint64
	completionFailedTotal    atomic.Uint64
	completionCancelledTotal atomic.Uint64
	completionDiscardedTotal atomic.Uint64
	sessionsActive           atomic.Int64

	completionDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncCompletionStarted increments the started counter.
func IncCompletionStarted() {
	completionStartedTotal.Add(1)
}

// IncCompletionCompleted increments the completed counter.
func IncCompletionCompleted() {
	completionCompletedTotal.Add(1)
}

// IncCompletionFailed increments the failed counter.
func IncCompletionFailed() {
	completionFailedTotal.Add(1)
}

// IncCompletionCancelled increments the cancelled counter.
func IncCompletionCancelled() {
	completionCancelledTotal.Add(1)
}

// IncCompletionDiscarded counts results that arrived after their run moved on.
func IncCompletionDiscarded() {
	completionDiscardedTotal.Add(1)
}

// ObserveCompletionDurationMs records a completion round trip in milliseconds.
func ObserveCompletionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	completionDuration.Observe(value)
}

// SetSessionsActive records the number of live editor sessions.
func SetSessionsActive(n int) {
	sessionsActive.Store(int64(n))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "completion_started_total", "Total completion requests issued", completionStartedTotal.Load())
	writeCounter(&buf, "completion_completed_total", "Total completions applied to a run", completionCompletedTotal.Load())
	writeCounter(&buf, "completion_failed_total", "Total completions that failed", completionFailedTotal.Load())
	writeCounter(&buf, "completion_cancelled_total", "Total completions cancelled before resolving", completionCancelledTotal.Load())
	writeCounter(&buf, "completion_discarded_total", "Total completion results discarded as stale", completionDiscardedTotal.Load())
	writeGauge(&buf, "editor_sessions_active", "Live editor sessions", sessionsActive.Load())
	writeHistogram(&buf, "completion_duration_ms", "Completion round trip in milliseconds", completionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeGauge(buf *bytes.Buffer, name, help string, value int64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

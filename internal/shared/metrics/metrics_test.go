package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{100, 500, 1000})
	h.Observe(50)
	h.Observe(300)
	h.Observe(300)
	h.Observe(5000)

	snap := h.Snapshot()
	if snap.count != 4 {
		t.Fatalf("expected count 4, got %d", snap.count)
	}

	var buf bytes.Buffer
	writeHistogram(&buf, "x_ms", "test", snap)
	out := buf.String()
	for _, want := range []string{
		`x_ms_bucket{le="100"} 1`,
		`x_ms_bucket{le="500"} 3`,
		`x_ms_bucket{le="1000"} 3`,
		`x_ms_bucket{le="+Inf"} 4`,
		`x_ms_sum 5650`,
		`x_ms_count 4`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRenderIncludesCompletionCounters(t *testing.T) {
	IncCompletionStarted()
	IncCompletionFailed()
	SetSessionsActive(3)
	ObserveCompletionDurationMs(-5)

	out := Render()
	for _, want := range []string{
		"# TYPE completion_started_total counter",
		"# TYPE completion_failed_total counter",
		"# TYPE completion_cancelled_total counter",
		"editor_sessions_active 3",
		"# TYPE completion_duration_ms histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in render output", want)
		}
	}
}

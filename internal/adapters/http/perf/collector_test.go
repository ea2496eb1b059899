package perf

import (
	"sync"
	"testing"
	"time"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

const lessonRoute = "GET /courses/{id}/lessons/{id}"

func request(path string, status int, ms float64) Entry {
	return Entry{Kind: KindRequest, Path: path, StatusCode: status, DurationMs: ms, Timestamp: base}
}

func query(label string, ms float64) Entry {
	return Entry{Kind: KindQuery, Path: label, DurationMs: ms, Timestamp: base}
}

// TestCollector_Snapshot verifies counts, error tally and top-N ordering.
func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector(100)
	for _, e := range []Entry{
		request(lessonRoute, 200, 10),
		request(lessonRoute, 200, 30),
		request("POST /courses/{id}/enroll", 402, 4),
		request("GET /", 500, 1),
		query("SELECT post_meta", 5),
		query("SELECT section_material", 9),
	} {
		c.Record(e)
	}

	snap := c.Snapshot(base.Add(-time.Minute), 1)
	if snap.TotalRecorded != 6 || snap.TotalRequests != 4 || snap.TotalQueries != 2 {
		t.Errorf("counts = %+v", snap)
	}
	if snap.ErrorRequests != 1 {
		t.Errorf("ErrorRequests = %d, want 1 (4xx is not an error)", snap.ErrorRequests)
	}
	if len(snap.SlowestPaths) != 1 {
		t.Fatalf("SlowestPaths = %+v, want 1 entry", snap.SlowestPaths)
	}
	if got := snap.SlowestPaths[0]; got.Path != lessonRoute || got.AvgMs != 20 || got.MaxMs != 30 || got.Count != 2 {
		t.Errorf("SlowestPaths[0] = %+v, want lesson route avg 20 max 30", got)
	}
	if len(snap.SlowestQueries) != 1 || snap.SlowestQueries[0].Path != "SELECT section_material" {
		t.Errorf("SlowestQueries = %+v", snap.SlowestQueries)
	}
}

// TestCollector_TiesBreakByPath verifies equal averages order by label.
func TestCollector_TiesBreakByPath(t *testing.T) {
	c := NewCollector(10)
	c.Record(request("GET /courses/{id}", 200, 7))
	c.Record(request("GET /", 200, 7))

	snap := c.Snapshot(base.Add(-time.Minute), -1)
	if len(snap.SlowestPaths) != 2 || snap.SlowestPaths[0].Path != "GET /" {
		t.Errorf("SlowestPaths = %+v, want GET / first", snap.SlowestPaths)
	}
}

// TestCollector_RingBufferOverwrites verifies oldest entries are dropped when full.
func TestCollector_RingBufferOverwrites(t *testing.T) {
	c := NewCollector(3)
	for i := 0; i < 5; i++ {
		c.Record(request(lessonRoute, 200, float64(i)))
	}

	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(base.Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 {
		t.Fatalf("SlowestPaths = %+v", snap.SlowestPaths)
	}
	// durations 2, 3, 4 survive
	if got := snap.SlowestPaths[0]; got.Count != 3 || got.AvgMs != 3 {
		t.Errorf("stat = %+v, want count 3 avg 3", got)
	}
}

// TestCollector_Percentiles verifies interpolated request percentiles.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	for i := 1; i <= 100; i++ {
		c.Record(request(lessonRoute, 200, float64(i)))
	}
	// queries never count towards request percentiles
	c.Record(query("SELECT post", 10_000))

	snap := c.Snapshot(base.Add(-time.Minute), 10)
	tests := []struct {
		name     string
		got      float64
		min, max float64
	}{
		{"p50", snap.RequestP50Ms, 50, 51},
		{"p95", snap.RequestP95Ms, 95, 96},
		{"p99", snap.RequestP99Ms, 99, 100},
	}
	for _, tt := range tests {
		if tt.got < tt.min || tt.got > tt.max {
			t.Errorf("%s = %v, want in [%v, %v]", tt.name, tt.got, tt.min, tt.max)
		}
	}
}

// TestPercentile tests interpolation on small inputs.
func TestPercentile(t *testing.T) {
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil) = %v, want 0", got)
	}
	if got := percentile([]float64{4}, 99); got != 4 {
		t.Errorf("percentile(single) = %v, want 4", got)
	}
	if got := percentile([]float64{10, 20}, 50); got != 15 {
		t.Errorf("percentile(10,20; 50) = %v, want 15", got)
	}
}

// TestCollector_SnapshotWindow verifies entries before since are excluded.
func TestCollector_SnapshotWindow(t *testing.T) {
	c := NewCollector(100)
	stale := request("GET /courses/{id}", 200, 100)
	stale.Timestamp = base.Add(-2 * time.Hour)
	c.Record(stale)
	c.Record(request(lessonRoute, 200, 10))

	snap := c.Snapshot(base.Add(-time.Hour), 10)
	if snap.TotalRequests != 1 || len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Path != lessonRoute {
		t.Errorf("snapshot = %+v, want only the recent lesson request", snap)
	}
	if snap.TotalRecorded != 2 {
		t.Errorf("TotalRecorded = %d, want 2 regardless of window", snap.TotalRecorded)
	}
}

// TestCollector_ConcurrentRecord verifies Record is safe across goroutines
// while snapshots are being taken.
func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Record(request(lessonRoute, 200, float64(n)))
			}
			c.Snapshot(base.Add(-time.Minute), 5)
		}(i)
	}
	wg.Wait()
	if c.TotalRecorded() != 1000 {
		t.Errorf("TotalRecorded = %d, want 1000", c.TotalRecorded())
	}
}

// BenchmarkCollectorRecord measures per-call cost of Record.
func BenchmarkCollectorRecord(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := request(lessonRoute, 200, 1.5)
	b.ReportAllocs()
	for b.Loop() {
		c.Record(e)
	}
}

// BenchmarkCollectorSnapshot measures a full-window dashboard load.
func BenchmarkCollectorSnapshot(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	for i := 0; i < DefaultRingSize; i++ {
		c.Record(request(lessonRoute, 200, float64(i%100)))
	}
	since := base.Add(-time.Hour)
	b.ReportAllocs()
	for b.Loop() {
		c.Snapshot(since, 10)
	}
}

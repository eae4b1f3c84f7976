package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestNewEngine(t *testing.T) {
	engine := NewEngine()
	if engine == nil {
		t.Fatal("NewEngine() returned nil")
	}

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 0 {
		t.Errorf("Initial TotalRequests = %d, want 0", snapshot.TotalRequests)
	}
	if snapshot.ActiveSessions != 0 {
		t.Errorf("Initial ActiveSessions = %d, want 0", snapshot.ActiveSessions)
	}
	if len(engine.GetStepStats()) != 0 {
		t.Errorf("Initial step stats not empty")
	}
}

func TestEngine_RecordLatency(t *testing.T) {
	engine := NewEngine()

	engine.RecordLatency(10*time.Millisecond, "login", true, 1000)
	engine.RecordLatency(20*time.Millisecond, "login", true, 2000)
	engine.RecordLatency(30*time.Millisecond, "get-cart", false, 500)

	snapshot := engine.GetSnapshot()

	if snapshot.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", snapshot.TotalRequests)
	}
	if snapshot.SuccessRequests != 2 {
		t.Errorf("SuccessRequests = %d, want 2", snapshot.SuccessRequests)
	}
	if snapshot.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", snapshot.FailedRequests)
	}
	if snapshot.TotalBytes != 3500 {
		t.Errorf("TotalBytes = %d, want 3500", snapshot.TotalBytes)
	}
	if snapshot.ErrorRate < 0.33 || snapshot.ErrorRate > 0.34 {
		t.Errorf("ErrorRate = %f, want ~0.333", snapshot.ErrorRate)
	}
}

func TestEngine_LatencyPercentiles(t *testing.T) {
	engine := NewEngine()

	for i := 1; i <= 10; i++ {
		engine.RecordLatency(time.Duration(i*10)*time.Millisecond, "", true, 100)
	}

	latency := engine.GetSnapshot().Latency

	// HDR binning makes exact values unlikely
	if latency.P50 < 40*time.Millisecond || latency.P50 > 60*time.Millisecond {
		t.Errorf("P50 = %v, want ~50ms (±10ms)", latency.P50)
	}
	if latency.P99 < 90*time.Millisecond || latency.P99 > 110*time.Millisecond {
		t.Errorf("P99 = %v, want ~100ms (±10ms)", latency.P99)
	}
	if latency.Min < 9*time.Millisecond || latency.Min > 11*time.Millisecond {
		t.Errorf("Min = %v, want ~10ms", latency.Min)
	}
	if latency.Max < 99*time.Millisecond || latency.Max > 101*time.Millisecond {
		t.Errorf("Max = %v, want ~100ms", latency.Max)
	}
	if latency.Count != 10 {
		t.Errorf("Count = %d, want 10", latency.Count)
	}
}

func TestEngine_RecordLatencyClampsToRange(t *testing.T) {
	engine := NewEngine()

	engine.RecordLatency(0, "logout", true, 0)
	engine.RecordLatency(2*time.Hour, "logout", true, 0)

	latency := engine.GetSnapshot().Latency
	if latency.Count != 2 {
		t.Fatalf("Count = %d, want 2", latency.Count)
	}
	if latency.Max > 61*time.Minute {
		t.Errorf("Max = %v, want clamped to ~1h", latency.Max)
	}
}

func TestEngine_StepStats(t *testing.T) {
	engine := NewEngine()

	engine.RecordLatency(5*time.Millisecond, "register", true, 0)
	engine.RecordLatency(5*time.Millisecond, "add-to-cart", true, 0)
	engine.RecordLatency(7*time.Millisecond, "add-to-cart", true, 0)
	engine.RecordLatency(9*time.Millisecond, "", true, 0)

	steps := engine.GetStepStats()
	if len(steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(steps))
	}
	if steps[0].Step != "add-to-cart" || steps[1].Step != "register" {
		t.Errorf("steps not sorted by name: %q, %q", steps[0].Step, steps[1].Step)
	}
	if steps[0].Latency.Count != 2 {
		t.Errorf("add-to-cart count = %d, want 2", steps[0].Latency.Count)
	}
}

func TestEngine_Sessions(t *testing.T) {
	engine := NewEngine()

	for i := 0; i < 4; i++ {
		engine.SessionStarted()
	}
	if got := engine.GetSnapshot().ActiveSessions; got != 4 {
		t.Errorf("ActiveSessions = %d, want 4", got)
	}

	engine.SessionFinished(SessionCompleted)
	engine.SessionFinished(SessionCompleted)
	engine.SessionFinished(SessionFailed)
	engine.SessionFinished(SessionCancelled)

	snapshot := engine.GetSnapshot()
	if snapshot.SessionsStarted != 4 {
		t.Errorf("SessionsStarted = %d, want 4", snapshot.SessionsStarted)
	}
	if snapshot.SessionsCompleted != 2 {
		t.Errorf("SessionsCompleted = %d, want 2", snapshot.SessionsCompleted)
	}
	if snapshot.SessionsFailed != 1 {
		t.Errorf("SessionsFailed = %d, want 1", snapshot.SessionsFailed)
	}
	if snapshot.SessionsCancelled != 1 {
		t.Errorf("SessionsCancelled = %d, want 1", snapshot.SessionsCancelled)
	}
	if snapshot.ActiveSessions != 0 {
		t.Errorf("ActiveSessions = %d, want 0", snapshot.ActiveSessions)
	}
}

func TestEngine_RecordPhases(t *testing.T) {
	engine := NewEngine()

	// fresh connection, then two reused ones
	engine.RecordPhases(2*time.Millisecond, 3*time.Millisecond, 10*time.Millisecond)
	engine.RecordPhases(0, 0, 20*time.Millisecond)
	engine.RecordPhases(0, 0, 30*time.Millisecond)

	phases := engine.GetSnapshot().Phases
	if phases.DNS.Count != 1 {
		t.Errorf("DNS count = %d, want 1", phases.DNS.Count)
	}
	if phases.Connect.Count != 1 {
		t.Errorf("Connect count = %d, want 1", phases.Connect.Count)
	}
	if phases.TTFB.Count != 3 {
		t.Errorf("TTFB count = %d, want 3", phases.TTFB.Count)
	}
	if phases.TTFB.Max < 29*time.Millisecond || phases.TTFB.Max > 31*time.Millisecond {
		t.Errorf("TTFB max = %v, want ~30ms", phases.TTFB.Max)
	}
	if phases.Connect.P50 < 2900*time.Microsecond || phases.Connect.P50 > 3100*time.Microsecond {
		t.Errorf("Connect P50 = %v, want ~3ms", phases.Connect.P50)
	}
	if engine.GetSnapshot().TotalRequests != 0 {
		t.Errorf("phases must not count as requests")
	}
}

func TestEngine_ConcurrentRecording(t *testing.T) {
	engine := NewEngine()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				engine.RecordLatency(time.Millisecond, "get-product", i%10 != 0, 10)
			}
		}()
	}
	wg.Wait()

	snapshot := engine.GetSnapshot()
	if snapshot.TotalRequests != 4000 {
		t.Errorf("TotalRequests = %d, want 4000", snapshot.TotalRequests)
	}
	if snapshot.FailedRequests != 400 {
		t.Errorf("FailedRequests = %d, want 400", snapshot.FailedRequests)
	}
}

func BenchmarkEngine_RecordLatency_Parallel(b *testing.B) {
	engine := NewEngine()

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			engine.RecordLatency(5*time.Millisecond, "get-product", true, 1024)
		}
	})
}

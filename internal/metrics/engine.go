// Package metrics aggregates request latencies and session outcomes.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Engine collects per-step latency histograms and session counters.
//
// Engine is safe for concurrent use. Counters use atomic operations and
// histograms are guarded by mutexes since HDR histograms are not thread-safe.
type Engine struct {
	// Range: 1 microsecond to 1 hour, 3 significant figures
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	stepHists   map[string]*hdrhistogram.Histogram
	stepHistsMu sync.RWMutex

	// connection phases; dns and connect only on fresh connections
	dnsHist     *hdrhistogram.Histogram
	connectHist *hdrhistogram.Histogram
	ttfbHist    *hdrhistogram.Histogram
	phaseMu     sync.Mutex

	totalRequests   atomic.Int64
	successRequests atomic.Int64
	failedRequests  atomic.Int64
	totalBytes      atomic.Int64

	sessionsStarted   atomic.Int64
	sessionsCompleted atomic.Int64
	sessionsFailed    atomic.Int64
	sessionsCancelled atomic.Int64
	activeSessions    atomic.Int32

	startTime time.Time
	config    EngineConfig

	// optional live export
	prom *Prometheus
}

// EngineConfig contains configuration for the metrics engine.
type EngineConfig struct {
	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HistogramMin:     1,
		HistogramMax:     3600000000,
		HistogramSigFigs: 3,
	}
}

// SessionResult is the outcome of one session run.
type SessionResult string

const (
	SessionCompleted SessionResult = "completed"
	SessionFailed    SessionResult = "failed"
	SessionCancelled SessionResult = "cancelled"
)

// NewEngine creates a new metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a new metrics engine with custom configuration.
func NewEngineWithConfig(config EngineConfig) *Engine {
	return &Engine{
		latencyHist: hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		stepHists:   make(map[string]*hdrhistogram.Histogram),
		dnsHist:     hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		connectHist: hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		ttfbHist:    hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		startTime:   time.Now(),
		config:      config,
	}
}

// WithPrometheus mirrors every recorded value into p.
func (e *Engine) WithPrometheus(p *Prometheus) *Engine {
	e.prom = p
	return e
}

// RecordLatency records one completed request.
//
// Parameters:
//   - duration: The request latency
//   - step: Session step name for the per-step breakdown (empty string to skip)
//   - success: Whether the backend answered with a 2xx status
//   - bytes: Number of bytes received
func (e *Engine) RecordLatency(duration time.Duration, step string, success bool, bytes int64) {
	latencyMicros := e.clamp(duration)

	e.latencyHistMu.Lock()
	e.latencyHist.RecordValue(latencyMicros)
	e.latencyHistMu.Unlock()

	if step != "" {
		e.recordStepHistogram(step, latencyMicros)
	}

	e.totalRequests.Add(1)
	e.totalBytes.Add(bytes)
	if success {
		e.successRequests.Add(1)
	} else {
		e.failedRequests.Add(1)
	}

	if e.prom != nil {
		e.prom.observeRequest(step, success, duration)
	}
}

// RecordPhases records the connection phases of one answered request.
// A zero dns or connect time means the connection was reused and is skipped.
func (e *Engine) RecordPhases(dns, connect, ttfb time.Duration) {
	e.phaseMu.Lock()
	if dns > 0 {
		e.dnsHist.RecordValue(e.clamp(dns))
	}
	if connect > 0 {
		e.connectHist.RecordValue(e.clamp(connect))
	}
	e.ttfbHist.RecordValue(e.clamp(ttfb))
	e.phaseMu.Unlock()

	if e.prom != nil {
		e.prom.observePhases(dns, connect, ttfb)
	}
}

func (e *Engine) clamp(d time.Duration) int64 {
	micros := d.Microseconds()
	if micros < e.config.HistogramMin {
		return e.config.HistogramMin
	}
	if micros > e.config.HistogramMax {
		return e.config.HistogramMax
	}
	return micros
}

func (e *Engine) recordStepHistogram(name string, latencyMicros int64) {
	e.stepHistsMu.Lock()
	defer e.stepHistsMu.Unlock()

	hist, exists := e.stepHists[name]
	if !exists {
		hist = hdrhistogram.New(e.config.HistogramMin, e.config.HistogramMax, e.config.HistogramSigFigs)
		e.stepHists[name] = hist
	}
	hist.RecordValue(latencyMicros)
}

// SessionStarted marks a session as running.
func (e *Engine) SessionStarted() {
	e.sessionsStarted.Add(1)
	active := e.activeSessions.Add(1)
	if e.prom != nil {
		e.prom.activeSessions.Set(float64(active))
	}
}

// SessionFinished records the outcome of a session started with SessionStarted.
func (e *Engine) SessionFinished(result SessionResult) {
	active := e.activeSessions.Add(-1)
	switch result {
	case SessionCompleted:
		e.sessionsCompleted.Add(1)
	case SessionFailed:
		e.sessionsFailed.Add(1)
	case SessionCancelled:
		e.sessionsCancelled.Add(1)
	}
	if e.prom != nil {
		e.prom.activeSessions.Set(float64(active))
		e.prom.sessions.WithLabelValues(string(result)).Inc()
	}
}

// GetSnapshot returns a point-in-time snapshot of all metrics.
func (e *Engine) GetSnapshot() *Snapshot {
	e.latencyHistMu.Lock()
	latency := statsFromHistogram(e.latencyHist)
	e.latencyHistMu.Unlock()

	e.phaseMu.Lock()
	phases := PhaseStats{
		DNS:     statsFromHistogram(e.dnsHist),
		Connect: statsFromHistogram(e.connectHist),
		TTFB:    statsFromHistogram(e.ttfbHist),
	}
	e.phaseMu.Unlock()

	elapsed := time.Since(e.startTime)
	totalReqs := e.totalRequests.Load()
	failedReqs := e.failedRequests.Load()

	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(totalReqs) / elapsed.Seconds()
	}

	errorRate := 0.0
	if totalReqs > 0 {
		errorRate = float64(failedReqs) / float64(totalReqs)
	}

	return &Snapshot{
		TotalRequests:     totalReqs,
		SuccessRequests:   e.successRequests.Load(),
		FailedRequests:    failedReqs,
		TotalBytes:        e.totalBytes.Load(),
		Latency:           latency,
		Phases:            phases,
		RPS:               rps,
		ErrorRate:         errorRate,
		SessionsStarted:   e.sessionsStarted.Load(),
		SessionsCompleted: e.sessionsCompleted.Load(),
		SessionsFailed:    e.sessionsFailed.Load(),
		SessionsCancelled: e.sessionsCancelled.Load(),
		ActiveSessions:    int(e.activeSessions.Load()),
		Elapsed:           elapsed,
		StartTime:         e.startTime,
		Timestamp:         time.Now(),
	}
}

// GetStepStats returns per-step latency statistics sorted by step name.
func (e *Engine) GetStepStats() []StepStats {
	e.stepHistsMu.RLock()
	defer e.stepHistsMu.RUnlock()

	result := make([]StepStats, 0, len(e.stepHists))
	for name, hist := range e.stepHists {
		result = append(result, StepStats{Step: name, Latency: statsFromHistogram(hist)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Step < result[j].Step })
	return result
}

func statsFromHistogram(h *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Min:    time.Duration(h.Min()) * time.Microsecond,
		Max:    time.Duration(h.Max()) * time.Microsecond,
		Mean:   time.Duration(h.Mean()) * time.Microsecond,
		StdDev: time.Duration(h.StdDev()) * time.Microsecond,
		P50:    time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(h.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		Count:  h.TotalCount(),
	}
}

// Snapshot contains a point-in-time view of all metrics.
type Snapshot struct {
	TotalRequests     int64         `json:"totalRequests"`
	SuccessRequests   int64         `json:"successRequests"`
	FailedRequests    int64         `json:"failedRequests"`
	TotalBytes        int64         `json:"totalBytes"`
	Latency           LatencyStats  `json:"latency"`
	Phases            PhaseStats    `json:"phases"`
	RPS               float64       `json:"rps"`
	ErrorRate         float64       `json:"errorRate"`
	SessionsStarted   int64         `json:"sessionsStarted"`
	SessionsCompleted int64         `json:"sessionsCompleted"`
	SessionsFailed    int64         `json:"sessionsFailed"`
	SessionsCancelled int64         `json:"sessionsCancelled"`
	ActiveSessions    int           `json:"activeSessions"`
	Elapsed           time.Duration `json:"elapsed"`
	StartTime         time.Time     `json:"startTime"`
	Timestamp         time.Time     `json:"timestamp"`
}

// LatencyStats contains latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}

// StepStats is the latency breakdown of one session step.
type StepStats struct {
	Step    string       `json:"step"`
	Latency LatencyStats `json:"latency"`
}

// PhaseStats breaks request latency into connection phases.
type PhaseStats struct {
	DNS     LatencyStats `json:"dns"`
	Connect LatencyStats `json:"connect"`
	TTFB    LatencyStats `json:"ttfb"`
}

package session

import (
	"context"
	"time"

	shophttp "github.com/wesleyorama2/shopload/internal/http"
	"github.com/wesleyorama2/shopload/internal/reqlog"
)

// Backend is where a session sends its calls.
type Backend interface {
	Do(ctx context.Context, req *shophttp.Request) (*shophttp.Response, error)
	String() string
}

// Recorder receives the latency and connection phases of every answered call.
type Recorder interface {
	RecordLatency(duration time.Duration, step string, success bool, bytes int64)
	RecordPhases(dns, connect, ttfb time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordLatency(time.Duration, string, bool, int64) {}
func (nopRecorder) RecordPhases(time.Duration, time.Duration, time.Duration) {}

// Executor sends requests to one backend on behalf of a user and logs a
// request record before and a response record after each call.
type Executor struct {
	backend Backend
	sink    reqlog.Sink
	metrics Recorder
	now     func() time.Time
}

// NewExecutor creates an executor. metrics may be nil.
func NewExecutor(backend Backend, sink reqlog.Sink, metrics Recorder) *Executor {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Executor{
		backend: backend,
		sink:    sink,
		metrics: metrics,
		now:     time.Now,
	}
}

// Send issues req as user.
//
// A cancelled ctx stops Send before anything is written or sent. Once sent,
// a call runs to completion (bounded by the client timeout) even if ctx is
// cancelled meanwhile. Transport errors are returned as-is and leave no
// response record. Status codes are not interpreted.
func (e *Executor) Send(ctx context.Context, user *User, req *shophttp.Request) (*shophttp.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if credential := credentialHeader(user); credential != "" {
		req.WithHeader("Authorization", credential)
	}

	access := reqlog.AccessWrite
	if req.IsRead() {
		access = reqlog.AccessRead
	}
	uri := req.URI()

	if err := e.sink.Write(reqlog.Record{
		Timestamp: e.now(),
		Kind:      reqlog.KindRequest,
		Path:      uri,
		Method:    req.Method,
		Access:    access,
	}); err != nil {
		return nil, err
	}

	resp, err := e.backend.Do(context.WithoutCancel(ctx), req)
	if err != nil {
		return nil, err
	}

	if err := e.sink.Write(reqlog.Record{
		Timestamp: e.now(),
		Kind:      reqlog.KindResponse,
		Path:      uri,
		Method:    req.Method,
		Status:    resp.Status,
		Duration:  resp.Elapsed(),
		Access:    access,
	}); err != nil {
		return nil, err
	}

	e.metrics.RecordLatency(resp.Elapsed(), req.Name, resp.IsSuccess(), resp.BytesReceived())
	e.metrics.RecordPhases(resp.Timing.DNSLookupTime, resp.Timing.TCPConnectTime, resp.Timing.TimeToFirstByte)
	return resp, nil
}

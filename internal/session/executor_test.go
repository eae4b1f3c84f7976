package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shophttp "github.com/wesleyorama2/shopload/internal/http"
	"github.com/wesleyorama2/shopload/internal/reqlog"
)

type recordedLatency struct {
	step    string
	success bool
	bytes   int64
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []recordedLatency
	ttfbs    []time.Duration
}

func (f *fakeRecorder) RecordLatency(d time.Duration, step string, success bool, bytes int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, recordedLatency{step: step, success: success, bytes: bytes})
}

func (f *fakeRecorder) RecordPhases(dns, connect, ttfb time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttfbs = append(f.ttfbs, ttfb)
}

type failingSink struct{}

func (failingSink) Write(reqlog.Record) error { return errors.New("disk full") }

func TestExecutor_SendWritesTwoRecords(t *testing.T) {
	server := newShopServer(t)
	sink := reqlog.NewMemorySink()
	rec := &fakeRecorder{}
	exec := NewExecutor(newBackend(server.URL), sink, rec)

	resp, err := exec.Send(context.Background(), testUser(),
		shophttp.NewRequest(http.MethodGet, "products").Named(StepListProducts).WithQueryParam("title", "Widget"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	records := sink.Records()
	require.Len(t, records, 2)

	req, res := records[0], records[1]
	assert.Equal(t, reqlog.KindRequest, req.Kind)
	assert.Equal(t, "products?title=Widget", req.Path)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, reqlog.AccessRead, req.Access)
	assert.Empty(t, req.Status)

	assert.Equal(t, reqlog.KindResponse, res.Kind)
	assert.Equal(t, "products?title=Widget", res.Path)
	assert.Equal(t, "200 OK", res.Status)
	assert.Equal(t, resp.Elapsed(), res.Duration)
	assert.False(t, res.Timestamp.Before(req.Timestamp))

	require.Len(t, rec.recorded, 1)
	assert.Equal(t, recordedLatency{step: StepListProducts, success: true, bytes: resp.BytesReceived()}, rec.recorded[0])
	require.Len(t, rec.ttfbs, 1)
	assert.Equal(t, resp.Timing.TimeToFirstByte, rec.ttfbs[0])
	assert.Positive(t, rec.ttfbs[0])
}

func TestExecutor_WriteAccess(t *testing.T) {
	server := newShopServer(t)
	sink := reqlog.NewMemorySink()
	exec := NewExecutor(newBackend(server.URL), sink, nil)

	_, err := exec.Send(context.Background(), testUser(), shophttp.NewRequest(http.MethodDelete, "my/cart/remove"))
	require.NoError(t, err)

	for _, r := range sink.Records() {
		assert.Equal(t, reqlog.AccessWrite, r.Access)
		assert.Equal(t, "my/cart/remove", r.Path)
	}
}

func TestExecutor_NonSuccessStatusIsNotAnError(t *testing.T) {
	server := newShopServer(t)
	server.handle("GET /my/orders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	sink := reqlog.NewMemorySink()
	rec := &fakeRecorder{}
	exec := NewExecutor(newBackend(server.URL), sink, rec)

	resp, err := exec.Send(context.Background(), testUser(), shophttp.NewRequest(http.MethodGet, "my/orders").Named(StepGetOrders))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "503 Service Unavailable", sink.Records()[1].Status)
	assert.False(t, rec.recorded[0].success)
}

func TestExecutor_TokenGating(t *testing.T) {
	server := newShopServer(t)
	exec := NewExecutor(newBackend(server.URL), reqlog.NewMemorySink(), nil)
	user := testUser()

	_, err := exec.Send(context.Background(), user, shophttp.NewRequest(http.MethodPost, "register"))
	require.NoError(t, err)

	require.NoError(t, user.Authenticate("tok123"))
	_, err = exec.Send(context.Background(), user, shophttp.NewRequest(http.MethodGet, "my/cart"))
	require.NoError(t, err)

	seen := server.requests()
	require.Len(t, seen, 2)
	assert.Empty(t, seen[0].Authorization)
	assert.Equal(t, "session tok123", seen[1].Authorization)
}

func TestExecutor_TransportErrorLeavesOnlyRequestRecord(t *testing.T) {
	server := newShopServer(t)
	backend := newBackend(server.URL)
	server.Close()

	sink := reqlog.NewMemorySink()
	rec := &fakeRecorder{}
	exec := NewExecutor(backend, sink, rec)

	_, err := exec.Send(context.Background(), testUser(), shophttp.NewRequest(http.MethodPost, "register"))
	require.Error(t, err)

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, reqlog.KindRequest, records[0].Kind)
	assert.Empty(t, rec.recorded)
	assert.Empty(t, rec.ttfbs)
}

func TestExecutor_CancelledContextSendsNothing(t *testing.T) {
	server := newShopServer(t)
	sink := reqlog.NewMemorySink()
	exec := NewExecutor(newBackend(server.URL), sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Send(ctx, testUser(), shophttp.NewRequest(http.MethodPost, "logout"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.Records())
	assert.Empty(t, server.requests())
}

func TestExecutor_InFlightCallSurvivesCancel(t *testing.T) {
	server := newShopServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	server.handle("GET /my/orders", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	sink := reqlog.NewMemorySink()
	exec := NewExecutor(newBackend(server.URL), sink, nil)

	resp, err := exec.Send(ctx, testUser(), shophttp.NewRequest(http.MethodGet, "my/orders"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, sink.Records(), 2)
	assert.Error(t, ctx.Err())
}

func TestExecutor_SinkFailure(t *testing.T) {
	server := newShopServer(t)
	exec := NewExecutor(newBackend(server.URL), failingSink{}, nil)

	_, err := exec.Send(context.Background(), testUser(), shophttp.NewRequest(http.MethodPost, "logout"))
	assert.EqualError(t, err, "disk full")
	assert.Empty(t, server.requests())
}

// Package driver keeps shopper sessions running against the backend pool.
package driver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/shopload/internal/identity"
	"github.com/wesleyorama2/shopload/internal/metrics"
	"github.com/wesleyorama2/shopload/internal/pool"
	"github.com/wesleyorama2/shopload/internal/session"
)

// Runner plays one session. *session.Script satisfies it.
type Runner interface {
	Run(ctx context.Context, backend session.Backend, user *session.User, rnd session.Random) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, backend session.Backend, user *session.User, rnd session.Random) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, backend session.Backend, user *session.User, rnd session.Random) error {
	return f(ctx, backend, user, rnd)
}

// Config controls how sessions are dispatched.
type Config struct {
	// Workers is the number of sessions in flight (1 = strictly sequential)
	Workers int

	// Sessions stops dispatch after this many sessions (0 = unbounded)
	Sessions int64

	// Seed derives every session's random source
	Seed int64

	// FailFast stops the whole run on the first failed session
	FailFast bool
}

// Stats counts sessions by outcome.
type Stats struct {
	Dispatched int64
	Completed  int64
	Failed     int64
	Cancelled  int64
}

// Driver runs sessions in a loop: acquire a backend, play a fresh user's
// session against it, release the backend, repeat. A failed session is
// logged and counted; the loop moves on unless FailFast is set.
type Driver struct {
	config     Config
	rotator    *pool.Rotator
	runner     Runner
	identities identity.Generator
	metrics    *metrics.Engine
	logger     *zap.Logger

	dispatched atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	cancelled  atomic.Int64
}

// Option configures a Driver.
type Option func(*Driver)

// WithMetrics reports session outcomes to engine.
func WithMetrics(engine *metrics.Engine) Option {
	return func(d *Driver) {
		d.metrics = engine
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// New creates a driver.
func New(config Config, rotator *pool.Rotator, runner Runner, identities identity.Generator, opts ...Option) (*Driver, error) {
	if config.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", config.Workers)
	}
	if config.Sessions < 0 {
		return nil, fmt.Errorf("sessions cannot be negative, got %d", config.Sessions)
	}
	if rotator == nil || runner == nil || identities == nil {
		return nil, errors.New("driver needs a rotator, a runner and an identity generator")
	}

	d := &Driver{
		config:     config,
		rotator:    rotator,
		runner:     runner,
		identities: identities,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run dispatches sessions until ctx is done or the session budget is spent.
// Cancellation is a clean stop and returns nil. With FailFast the first
// session error is returned.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("driver started",
		zap.Int("workers", d.config.Workers),
		zap.Int64("sessions", d.config.Sessions),
		zap.Int("backends", d.rotator.Size()),
		zap.Int64("seed", d.config.Seed))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := 1; w <= d.config.Workers; w++ {
		worker := w
		g.Go(func() error {
			return d.work(gctx, worker)
		})
	}
	err := g.Wait()

	stats := d.Stats()
	d.logger.Info("driver stopped",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("completed", stats.Completed),
		zap.Int64("failed", stats.Failed),
		zap.Int64("cancelled", stats.Cancelled))
	return err
}

// work is one worker's loop.
func (d *Driver) work(ctx context.Context, worker int) error {
	logger := d.logger.With(zap.Int("worker", worker))
	logger.Debug("worker started")
	defer logger.Debug("worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		backend, err := d.rotator.Acquire(ctx)
		if err != nil {
			return nil
		}

		seq, ok := d.nextSession()
		if !ok {
			d.rotator.Release(backend)
			return nil
		}

		err = d.runSession(ctx, logger, seq, backend)
		d.rotator.Release(backend)

		if err != nil && d.config.FailFast && ctx.Err() == nil {
			return err
		}
	}
}

// nextSession reserves a session number, or reports the budget is spent.
func (d *Driver) nextSession() (int64, bool) {
	seq := d.dispatched.Add(1)
	if d.config.Sessions > 0 && seq > d.config.Sessions {
		d.dispatched.Add(-1)
		return 0, false
	}
	return seq, true
}

// runSession plays one session and records its outcome. It returns the
// session error unless the session was stopped by cancellation.
func (d *Driver) runSession(ctx context.Context, logger *zap.Logger, seq int64, backend *pool.Backend) error {
	user := session.NewUser(d.identities.Generate())
	rnd := rand.New(rand.NewSource(sessionSeed(d.config.Seed, seq)))

	if d.metrics != nil {
		d.metrics.SessionStarted()
	}

	err := d.runner.Run(ctx, backend, user, rnd)

	switch {
	case err == nil:
		d.completed.Add(1)
		d.finish(metrics.SessionCompleted)
		logger.Debug("session completed",
			zap.Int64("session", seq),
			zap.String("user", user.ID),
			zap.String("target", backend.String()))
		return nil

	case ctx.Err() != nil && isCancellation(err):
		d.cancelled.Add(1)
		d.finish(metrics.SessionCancelled)
		logger.Debug("session cancelled",
			zap.Int64("session", seq),
			zap.String("user", user.ID),
			zap.String("target", backend.String()))
		return nil

	default:
		d.failed.Add(1)
		d.finish(metrics.SessionFailed)
		fields := []zap.Field{
			zap.Int64("session", seq),
			zap.String("user", user.ID),
			zap.String("target", backend.String()),
			zap.Error(err),
		}
		var stepErr *session.StepError
		if errors.As(err, &stepErr) {
			fields = append(fields, zap.String("step", stepErr.Step))
		}
		logger.Error("session failed", fields...)
		return err
	}
}

func (d *Driver) finish(result metrics.SessionResult) {
	if d.metrics != nil {
		d.metrics.SessionFinished(result)
	}
}

// sessionSeed spreads session numbers so that neighbouring runs with
// neighbouring seeds do not share streams.
func sessionSeed(seed, seq int64) int64 {
	return int64(uint64(seed) + uint64(seq)*0x9E3779B97F4A7C15)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Stats returns the session counters so far.
func (d *Driver) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Completed:  d.completed.Load(),
		Failed:     d.failed.Load(),
		Cancelled:  d.cancelled.Load(),
	}
}

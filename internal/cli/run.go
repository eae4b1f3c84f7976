package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/shopload/internal/config"
	"github.com/wesleyorama2/shopload/internal/driver"
	shophttp "github.com/wesleyorama2/shopload/internal/http"
	"github.com/wesleyorama2/shopload/internal/identity"
	"github.com/wesleyorama2/shopload/internal/metrics"
	"github.com/wesleyorama2/shopload/internal/observability"
	"github.com/wesleyorama2/shopload/internal/output"
	"github.com/wesleyorama2/shopload/internal/pool"
	"github.com/wesleyorama2/shopload/internal/reqlog"
	"github.com/wesleyorama2/shopload/internal/session"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run shopper sessions against the configured backends",
		Long: `Run shopper sessions until interrupted, until --duration elapses or until
--sessions sessions have been dispatched.

  shopload run --config targets.json --log requests.log
  shopload run --config targets.yaml --log requests.log --workers 16 --duration 10m \
    --metrics-addr :9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bindFlags(cmd.Flags())
			if err != nil {
				return err
			}

			var settings config.Settings
			if err := v.Unmarshal(&settings); err != nil {
				return fmt.Errorf("failed to read settings: %w", err)
			}
			settings.ApplyDefaults()
			if err := settings.Validate(); err != nil {
				return err
			}

			return runLoad(cmd.Context(), settings, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringP("config", "c", "", "Targets file (JSON, or YAML by .yaml/.yml extension)")
	cmd.Flags().StringP("log", "l", "", "Request log file")
	cmd.Flags().Int("log-max-size", 0, "Rotate the request log at this size in MB (0 disables rotation)")
	cmd.Flags().Int("log-max-backups", 0, "Rotated request logs to keep")
	cmd.Flags().Int("log-max-age", 0, "Remove rotated request logs older than this many days (0 keeps them)")
	cmd.Flags().Bool("log-compress", false, "Gzip rotated request logs")
	cmd.Flags().IntP("workers", "w", 1, "Concurrent sessions (1 runs sessions strictly one after another)")
	cmd.Flags().Int("sessions", 0, "Stop after this many sessions (0 runs until stopped)")
	cmd.Flags().Duration("duration", 0, "Stop after this long (e.g. 30s, 10m)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Request timeout")
	cmd.Flags().Duration("think-time", 0, "Pause between consecutive calls of a session (e.g. 1s)")
	cmd.Flags().Int64("seed", 0, "Seed for all random decisions (0 picks one from the clock)")
	cmd.Flags().Bool("fail-fast", false, "Stop the whole run on the first failed session")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	cmd.Flags().String("log-level", "info", "Diagnostic log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "console", "Diagnostic log format: console or json")
	cmd.Flags().BoolP("quiet", "q", false, "Do not print the summary")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	return cmd
}

// runLoad wires the components for one run and blocks until it ends.
func runLoad(ctx context.Context, settings config.Settings, stdout, stderr io.Writer) error {
	targets, err := config.LoadTargets(settings.TargetsFile)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(observability.LoggerConfig{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Color:  !settings.NoColor && output.SupportsColor(stderr),
		Name:   "shopload",
	}, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sink, err := reqlog.OpenFile(settings.LogFile, reqlog.FileOptions{
		MaxSizeMB:  settings.LogMaxSizeMB,
		MaxBackups: settings.LogMaxBackups,
		MaxAgeDays: settings.LogMaxAgeDays,
		Compress:   settings.LogCompress,
	})
	if err != nil {
		return err
	}
	defer sink.Close()

	engine := metrics.NewEngine()
	if settings.MetricsAddr != "" {
		prom := metrics.NewPrometheus()
		engine.WithPrometheus(prom)

		shutdown, err := serveMetrics(settings.MetricsAddr, prom.Handler(), logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	for _, t := range targets {
		logger.Info("using backend", zap.String("url", t.BaseURL()), zap.Int("slots", t.SlotCount()))
	}

	backends := pool.NewBackends(targets,
		shophttp.WithTimeout(settings.Timeout),
		shophttp.WithHeader("User-Agent", "shopload/"+version),
	)
	defer func() {
		for _, b := range backends {
			b.Close()
		}
	}()

	rotator, err := pool.NewRotator(backends)
	if err != nil {
		return err
	}

	d, err := driver.New(driver.Config{
		Workers:  settings.Workers,
		Sessions: int64(settings.Sessions),
		Seed:     settings.Seed,
		FailFast: settings.FailFast,
	},
		rotator,
		session.NewScript(sink, engine, session.WithThinkTime(settings.ThinkTime)),
		identity.NewFakeGenerator(uint64(settings.Seed)),
		driver.WithMetrics(engine),
		driver.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if settings.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Duration)
		defer cancel()
	}

	runErr := d.Run(ctx)

	if !settings.Quiet {
		stats := d.Stats()
		output.NewPrinter(stdout, !settings.NoColor && output.SupportsColor(stdout)).PrintSummary(output.Summary{
			Backends:  rotator.Size(),
			Workers:   settings.Workers,
			Seed:      settings.Seed,
			LogFile:   settings.LogFile,
			Completed: stats.Completed,
			Failed:    stats.Failed,
			Cancelled: stats.Cancelled,
			Snapshot:  engine.GetSnapshot(),
			Steps:     engine.GetStepStats(),
		})
	}

	return runErr
}

// serveMetrics starts the metrics endpoint and returns a function that stops it.
func serveMetrics(addr string, handler http.Handler, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on metrics address: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

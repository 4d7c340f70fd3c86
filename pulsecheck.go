package pulsecheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/pulsecheck/internal/auth"
	"github.com/jpalmerr/pulsecheck/internal/notify"
	"github.com/jpalmerr/pulsecheck/internal/poller"
	"github.com/jpalmerr/pulsecheck/internal/registry"
	"github.com/jpalmerr/pulsecheck/internal/server"
	"github.com/jpalmerr/pulsecheck/internal/store"
	"github.com/jpalmerr/pulsecheck/internal/users"
)

const (
	defaultPollingInterval = poller.DefaultInterval
	defaultPort            = 3000
	defaultTokenTTL        = auth.DefaultTokenTTL
	defaultTokenLength     = auth.DefaultTokenLength
	defaultCheckLength     = registry.DefaultCheckLength
	defaultMaxChecks       = registry.DefaultMaxChecks
)

// Monitor is the main orchestrator for the JSON API and the check worker.
//
// Monitor wires the record store, the token authority, the user and check
// services, the HTTP server and the polling scheduler. It is created using
// [New] with functional options and started with [Monitor.Start].
//
// The typical lifecycle is:
//
//	m, err := pulsecheck.New(pulsecheck.WithSecret(secret))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//	defer m.Close()
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until context cancelled
type Monitor struct {
	port            int
	pollingInterval time.Duration
	logger          *slog.Logger
	resultCallbacks []func(Result)

	store     RecordStore
	notifier  Notifier
	server    *server.Server
	scheduler *poller.Scheduler
}

// New creates a new [Monitor] instance with the given options.
//
// [WithSecret] is required. Other options have defaults:
//   - Port: 3000
//   - Polling interval: 15 seconds
//   - Token TTL: 1 hour
//   - Token and check id lengths: 26 and 25
//   - Max checks per user: 5
//   - Store: in memory
//   - Notifier: log only
func New(opts ...Option) (*Monitor, error) {
	cfg := &monitorConfig{
		port:            defaultPort,
		pollingInterval: defaultPollingInterval,
		tokenTTL:        defaultTokenTTL,
		tokenLength:     defaultTokenLength,
		checkLength:     defaultCheckLength,
		maxChecks:       defaultMaxChecks,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.secret == "" {
		return nil, errors.New("secret is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.store == nil {
		cfg.store = store.NewMemoryStore()
	}
	if cfg.notifier == nil {
		cfg.notifier = notify.NewLog(logger)
	}

	hasher, err := auth.NewHasher(cfg.secret, cfg.bcryptCost)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		port:            cfg.port,
		pollingInterval: cfg.pollingInterval,
		logger:          logger,
		resultCallbacks: cfg.resultCallbacks,
		store:           cfg.store,
		notifier:        cfg.notifier,
	}

	authority := auth.NewAuthority(cfg.store, hasher,
		auth.WithTokenLength(cfg.tokenLength),
		auth.WithTTL(cfg.tokenTTL),
		auth.WithLogger(logger),
	)
	checks := registry.New(cfg.store, authority,
		registry.WithCheckLength(cfg.checkLength),
		registry.WithMaxChecks(cfg.maxChecks),
		registry.WithLogger(logger),
	)

	m.server = server.NewServer(server.Config{
		Users:          users.NewService(cfg.store, authority, logger),
		Tokens:         authority,
		Checks:         checks,
		Port:           cfg.port,
		LoginPerMinute: cfg.loginPerMinute,
		Logger:         logger,
	})

	pipeline := poller.NewPipeline(cfg.store, cfg.notifier, time.Now, logger, m.observe)
	m.scheduler = poller.NewScheduler(cfg.store, pipeline, poller.NewClient(), cfg.pollingInterval, logger)

	return m, nil
}

// Start serves the JSON API and runs the check worker.
//
// Start is a blocking call that runs until the provided context is cancelled.
// Every check is probed immediately, then once per polling interval.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start or stops serving; either failure also stops the worker.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("pulsecheck starting", "port", m.port)
	m.logger.Info("polling configured", "interval", m.pollingInterval.String())

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	return m.run(ctx, m.server.Start)
}

// run starts the HTTP server with start, then runs the server and the
// scheduler as one group: when either member returns, the other is stopped.
func (m *Monitor) run(ctx context.Context, start func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := start(gctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	g.Go(func() error {
		if err := m.server.Wait(); err != nil {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		m.scheduler.Start(gctx)
		<-gctx.Done()
		m.scheduler.Stop()
		return nil
	})

	err := g.Wait()
	m.logger.Info("pulsecheck stopped")
	return err
}

// Handler returns the JSON API handler without binding a port.
func (m *Monitor) Handler() http.Handler {
	return m.server.Handler()
}

// RunCycle probes every stored check once and returns when all probes have
// been processed.
func (m *Monitor) RunCycle(ctx context.Context) {
	m.scheduler.RunCycle(ctx)
}

// Close releases the store and, if it holds resources, the notifier.
func (m *Monitor) Close() error {
	var errs []error
	if c, ok := m.notifier.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, m.store.Close())
	return errors.Join(errs...)
}

// Port returns the configured HTTP port.
func (m *Monitor) Port() int {
	return m.port
}

// PollingInterval returns the configured interval between polling cycles.
func (m *Monitor) PollingInterval() time.Duration {
	return m.pollingInterval
}

// observe fans a pipeline transition out to the result callbacks.
func (m *Monitor) observe(t poller.Transition) {
	if len(m.resultCallbacks) == 0 {
		return
	}
	result := transitionToResult(t)
	for _, cb := range m.resultCallbacks {
		invokeCallbackSafe(cb, result, m.logger)
	}
}

// transitionToResult converts an internal transition to the public type.
func transitionToResult(t poller.Transition) Result {
	return Result{
		CheckID:    t.Check.ID,
		Phone:      t.Check.Phone,
		URL:        t.Check.Target(),
		Previous:   State(t.Previous),
		State:      State(t.Check.State),
		StatusCode: t.Outcome.StatusCode,
		Reason:     t.Outcome.Reason,
		Latency:    t.Outcome.Latency,
		CheckedAt:  t.Check.CheckedAt(),
		Persisted:  t.Persisted,
		Alerted:    t.Alerted,
	}
}

// invokeCallbackSafe calls a result callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Result), result Result, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("result callback panicked",
				"panic", r,
				"check_id", result.CheckID,
			)
		}
	}()
	cb(result)
}

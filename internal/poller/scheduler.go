package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/pulsecheck/internal/model"
	"github.com/jpalmerr/pulsecheck/internal/store"
)

// DefaultInterval is the time between polling cycles.
const DefaultInterval = 15 * time.Second

// Scheduler is the check worker: on every tick it lists all checks and
// probes each one in its own goroutine.
//
// Cycles are started on a fixed period regardless of how long the previous
// one took, so they may overlap. There is no cap on in-flight probes.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	store    store.Store
	pipeline *Pipeline
	client   *Client
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewScheduler creates a check worker. A nil client gets a fresh [Client].
func NewScheduler(s store.Store, pipeline *Pipeline, client *Client, interval time.Duration, logger *slog.Logger) *Scheduler {
	if client == nil {
		client = NewClient()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    s,
		pipeline: pipeline,
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// Start runs one cycle immediately and then one per interval, in the
// background. Start is idempotent; after Stop it is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	loopCtx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		s.launchCycle(loopCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.launchCycle(loopCtx)
			}
		}
	}()
}

// launchCycle runs a cycle without waiting for it.
func (s *Scheduler) launchCycle(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunCycle(ctx)
	}()
}

// Stop halts the tick loop and waits for in-flight cycles and probes.
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	if s.client != nil {
		s.client.Close()
	}
}

// RunCycle lists every check, probes each well-formed one concurrently and
// returns once all of them have been processed. Unreadable or malformed
// records are logged and skipped.
func (s *Scheduler) RunCycle(ctx context.Context) {
	keys, err := s.store.List(ctx, store.Checks)
	if err != nil {
		s.logger.Error("failed to list checks", "error", err)
		return
	}
	if len(keys) == 0 {
		s.logger.Debug("no checks registered")
		return
	}

	// probes are bounded by their own timeout and finish even if the
	// scheduler is stopping
	probeCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, key := range keys {
		check, err := s.load(ctx, key)
		if err != nil {
			s.logger.Warn("skipping check", "check_id", key, "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.probe(probeCtx, check)
		}()
	}
	wg.Wait()
}

// load reads and normalizes one check record.
func (s *Scheduler) load(ctx context.Context, key string) (model.Check, error) {
	raw, err := s.store.ReadRaw(ctx, store.Checks, key)
	if err != nil {
		return model.Check{}, fmt.Errorf("read: %w", err)
	}
	var check model.Check
	if err := json.Unmarshal(raw, &check); err != nil {
		return model.Check{}, fmt.Errorf("malformed record: %w", err)
	}
	if check.ID == "" {
		return model.Check{}, fmt.Errorf("malformed record: missing id")
	}
	return check.Normalize(), nil
}

// probe runs one probe and hands its outcome to the pipeline. Panics are
// logged with a correlation id and swallowed.
func (s *Scheduler) probe(ctx context.Context, check model.Check) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("probe panic",
				"correlation_id", uuid.NewString(),
				"check_id", check.ID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	outcome := s.client.Probe(ctx, check)
	s.logger.Debug("probe finished",
		"check_id", check.ID,
		"status_code", outcome.StatusCode,
		"error", outcome.Reason,
		"latency", outcome.Latency,
	)
	s.pipeline.Process(ctx, check, outcome)
}

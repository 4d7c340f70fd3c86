package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpalmerr/pulsecheck/internal/model"
	"github.com/jpalmerr/pulsecheck/internal/notify"
	"github.com/jpalmerr/pulsecheck/internal/store"
)

// Transition describes what the pipeline did with one outcome.
type Transition struct {
	// Check is the record as persisted (or as it would have been, if
	// Persisted is false).
	Check model.Check

	Previous model.State
	Outcome  Outcome

	// AlertWanted is true when the check had been probed before and the
	// state changed.
	AlertWanted bool
	Persisted   bool

	// Alerted is true when the gateway accepted the message.
	Alerted bool
}

// Pipeline turns probe outcomes into persisted state and alerts.
type Pipeline struct {
	store    store.Store
	gateway  notify.Gateway
	now      func() time.Time
	logger   *slog.Logger
	observer func(Transition)
}

// NewPipeline returns a Pipeline. observer may be nil.
func NewPipeline(s store.Store, gateway notify.Gateway, now func() time.Time, logger *slog.Logger, observer func(Transition)) *Pipeline {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: s, gateway: gateway, now: now, logger: logger, observer: observer}
}

// Process derives the new state of check from outcome, persists it and
// alerts the owner on a transition. Errors are logged, never returned.
func (p *Pipeline) Process(ctx context.Context, check model.Check, outcome Outcome) Transition {
	newState := model.StateDown
	if !outcome.Error && check.Accepts(outcome.StatusCode) {
		newState = model.StateUp
	}

	t := Transition{
		Previous:    check.State,
		Outcome:     outcome,
		AlertWanted: check.LastChecked != nil && check.State != newState,
	}

	now := p.now().UnixMilli()
	check.State = newState
	check.LastChecked = &now
	t.Check = check

	if err := p.store.Update(ctx, store.Checks, check.ID, check); err != nil {
		p.logger.Error("failed to persist check state",
			"check_id", check.ID, "state", newState, "error", err)
		p.observe(t)
		return t
	}
	t.Persisted = true

	if t.AlertWanted {
		msg := check.AlertMessage()
		if err := p.gateway.Send(ctx, check.Phone, msg); err != nil {
			p.logger.Warn("failed to send alert",
				"check_id", check.ID, "phone", check.Phone, "error", err)
		} else {
			t.Alerted = true
			p.logger.Info("owner alerted", "check_id", check.ID, "state", newState)
		}
	}

	p.observe(t)
	return t
}

func (p *Pipeline) observe(t Transition) {
	if p.observer != nil {
		p.observer(t)
	}
}

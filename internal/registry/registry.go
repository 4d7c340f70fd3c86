// Package registry validates, stores and links the check definitions owned
// by each user.
//
// A check lives in two places: its own record in the checks collection and
// its id in the owner's check list. Create and Delete write both records in
// sequence without a transaction; a failure between the two writes is
// reported to the caller and left for the operator.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jpalmerr/pulsecheck/internal/auth"
	"github.com/jpalmerr/pulsecheck/internal/model"
	"github.com/jpalmerr/pulsecheck/internal/store"
)

const (
	DefaultCheckLength = 25
	DefaultMaxChecks   = 5
)

// Registry manages check records.
type Registry struct {
	store     store.Store
	tokens    *auth.Authority
	checkLen  int
	maxChecks int
	logger    *slog.Logger
}

// Option configures a [Registry].
type Option func(*Registry)

// WithCheckLength sets the generated check id length.
func WithCheckLength(n int) Option {
	return func(r *Registry) { r.checkLen = n }
}

// WithMaxChecks sets how many checks a single user may own.
func WithMaxChecks(n int) Option {
	return func(r *Registry) { r.maxChecks = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New returns a Registry.
func New(s store.Store, tokens *auth.Authority, opts ...Option) *Registry {
	r := &Registry{
		store:     s,
		tokens:    tokens,
		checkLen:  DefaultCheckLength,
		maxChecks: DefaultMaxChecks,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckLength returns the configured check id length.
func (r *Registry) CheckLength() int {
	return r.checkLen
}

// Create validates spec, stores a new check owned by the token's user and
// appends its id to the user's check list.
func (r *Registry) Create(ctx context.Context, tokenID string, spec model.CheckSpec) (model.Check, error) {
	check, err := spec.Validate()
	if err != nil {
		return model.Check{}, err
	}

	tokenID = strings.TrimSpace(tokenID)
	phone, ok := r.tokens.Resolve(ctx, tokenID)
	if !ok || !r.tokens.Verify(ctx, tokenID, phone) {
		return model.Check{}, model.ErrAuth
	}

	var owner model.User
	if err := r.store.Read(ctx, store.Users, phone, &owner); err != nil {
		return model.Check{}, fmt.Errorf("%w: read owner %s: %v", model.ErrStore, phone, err)
	}
	if len(owner.Checks) >= r.maxChecks {
		return model.Check{}, model.ErrLimitExceeded
	}

	id, err := auth.RandomID(r.checkLen)
	if err != nil {
		return model.Check{}, fmt.Errorf("%w: %v", model.ErrStore, err)
	}
	check.ID = id
	check.Phone = phone

	if err := r.store.Create(ctx, store.Checks, id, check); err != nil {
		if errors.Is(err, store.ErrExists) {
			return model.Check{}, fmt.Errorf("%w: check %s", model.ErrConflict, id)
		}
		return model.Check{}, fmt.Errorf("%w: create check: %v", model.ErrStore, err)
	}

	owner.Checks = append(owner.Checks, id)
	if err := r.store.Update(ctx, store.Users, phone, owner); err != nil {
		// the check record stays behind; it is polled but unlisted
		r.logger.Error("check stored but owner not updated", "check_id", id, "phone", phone, "error", err)
		return model.Check{}, fmt.Errorf("%w: update owner: %v", model.ErrStore, err)
	}

	r.logger.Info("check created", "check_id", id, "phone", phone, "target", check.Target())
	return check, nil
}

// Get returns a check if tokenID belongs to its owner.
func (r *Registry) Get(ctx context.Context, checkID, tokenID string) (model.Check, error) {
	return r.authorized(ctx, checkID, tokenID)
}

// Update applies the valid fields of patch to a check.
func (r *Registry) Update(ctx context.Context, checkID string, patch model.CheckPatch, tokenID string) (model.Check, error) {
	checkID = strings.TrimSpace(checkID)
	if !auth.ValidID(checkID, r.checkLen) {
		return model.Check{}, fmt.Errorf("%w: invalid check id", model.ErrValidation)
	}
	// validate against a scratch copy so zero-field patches fail before any read
	if patch.Apply(&model.Check{}) == 0 {
		return model.Check{}, fmt.Errorf("%w: no valid fields to update", model.ErrValidation)
	}

	check, err := r.authorized(ctx, checkID, tokenID)
	if err != nil {
		return model.Check{}, err
	}

	patch.Apply(&check)
	if err := r.store.Update(ctx, store.Checks, check.ID, check); err != nil {
		return model.Check{}, fmt.Errorf("%w: update check: %v", model.ErrStore, err)
	}
	return check, nil
}

// Delete removes a check and unlinks it from its owner.
func (r *Registry) Delete(ctx context.Context, checkID, tokenID string) error {
	check, err := r.authorized(ctx, checkID, tokenID)
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, store.Checks, check.ID); err != nil {
		return fmt.Errorf("%w: delete check: %v", model.ErrStore, err)
	}

	var owner model.User
	if err := r.store.Read(ctx, store.Users, check.Phone, &owner); err != nil {
		return fmt.Errorf("%w: read owner %s: %v", model.ErrStore, check.Phone, err)
	}
	if !owner.RemoveCheck(check.ID) {
		r.logger.Error("deleted check missing from owner", "check_id", check.ID, "phone", check.Phone)
		return fmt.Errorf("%w: check %s not listed for %s", model.ErrInconsistent, check.ID, check.Phone)
	}
	if err := r.store.Update(ctx, store.Users, owner.Phone, owner); err != nil {
		return fmt.Errorf("%w: update owner: %v", model.ErrStore, err)
	}

	r.logger.Info("check deleted", "check_id", check.ID, "phone", check.Phone)
	return nil
}

func (r *Registry) authorized(ctx context.Context, checkID, tokenID string) (model.Check, error) {
	checkID = strings.TrimSpace(checkID)
	if !auth.ValidID(checkID, r.checkLen) {
		return model.Check{}, fmt.Errorf("%w: invalid check id", model.ErrValidation)
	}

	var check model.Check
	if err := r.store.Read(ctx, store.Checks, checkID, &check); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Check{}, model.ErrNotFound
		}
		return model.Check{}, fmt.Errorf("%w: read check: %v", model.ErrStore, err)
	}

	if !r.tokens.Verify(ctx, strings.TrimSpace(tokenID), check.Phone) {
		return model.Check{}, model.ErrAuth
	}
	return check, nil
}

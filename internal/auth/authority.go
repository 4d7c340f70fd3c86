// Package auth issues and verifies the bearer tokens that gate every
// authenticated pulsecheck operation, and hashes user passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jpalmerr/pulsecheck/internal/model"
	"github.com/jpalmerr/pulsecheck/internal/store"
)

const (
	DefaultTokenLength = 26
	DefaultTokenTTL    = time.Hour
)

// Authority manages token records.
type Authority struct {
	store    store.Store
	hasher   *Hasher
	tokenLen int
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an [Authority].
type Option func(*Authority)

// WithTokenLength sets the generated token id length.
func WithTokenLength(n int) Option {
	return func(a *Authority) { a.tokenLen = n }
}

// WithTTL sets how long issued and extended tokens stay valid.
func WithTTL(ttl time.Duration) Option {
	return func(a *Authority) { a.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authority) { a.logger = l }
}

// NewAuthority returns an Authority backed by s.
func NewAuthority(s store.Store, h *Hasher, opts ...Option) *Authority {
	a := &Authority{
		store:    s,
		hasher:   h,
		tokenLen: DefaultTokenLength,
		ttl:      DefaultTokenTTL,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Hasher returns the password hasher shared with the account service.
func (a *Authority) Hasher() *Hasher {
	return a.hasher
}

// TokenLength returns the configured token id length.
func (a *Authority) TokenLength() int {
	return a.tokenLen
}

// Issue logs a user in and persists a fresh token.
func (a *Authority) Issue(ctx context.Context, phone, password string) (model.Token, error) {
	phone = strings.TrimSpace(phone)
	if !model.ValidPhone(phone) || !model.ValidPassword(password) {
		return model.Token{}, fmt.Errorf("%w: phone and password are required", model.ErrValidation)
	}

	var user model.User
	if err := a.store.Read(ctx, store.Users, phone, &user); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("login lookup failed", "phone", phone, "error", err)
		}
		return model.Token{}, model.ErrInvalidCredentials
	}
	if !a.hasher.Check(user.PasswordHash, password) {
		return model.Token{}, model.ErrInvalidCredentials
	}

	id, err := RandomID(a.tokenLen)
	if err != nil {
		return model.Token{}, fmt.Errorf("%w: %v", model.ErrStore, err)
	}
	token := model.Token{
		ID:      id,
		Phone:   phone,
		Expires: a.now().Add(a.ttl).UnixMilli(),
	}
	if err := a.store.Create(ctx, store.Tokens, id, token); err != nil {
		return model.Token{}, fmt.Errorf("%w: create token: %v", model.ErrStore, err)
	}

	a.logger.Info("token issued", "phone", phone)
	return token, nil
}

// Verify reports whether tokenID names an unexpired token owned by phone.
// Any failure yields false.
func (a *Authority) Verify(ctx context.Context, tokenID, phone string) bool {
	token, ok := a.lookup(ctx, tokenID)
	if !ok {
		return false
	}
	return token.Phone == phone && token.ValidAt(a.now())
}

// Resolve returns the owner of an unexpired token.
func (a *Authority) Resolve(ctx context.Context, tokenID string) (string, bool) {
	token, ok := a.lookup(ctx, tokenID)
	if !ok || !token.ValidAt(a.now()) {
		return "", false
	}
	return token.Phone, true
}

func (a *Authority) lookup(ctx context.Context, tokenID string) (model.Token, bool) {
	if !ValidID(tokenID, a.tokenLen) {
		return model.Token{}, false
	}
	var token model.Token
	if err := a.store.Read(ctx, store.Tokens, tokenID, &token); err != nil {
		return model.Token{}, false
	}
	return token, true
}

// Get returns the token record.
func (a *Authority) Get(ctx context.Context, tokenID string) (model.Token, error) {
	tokenID = strings.TrimSpace(tokenID)
	if !ValidID(tokenID, a.tokenLen) {
		return model.Token{}, fmt.Errorf("%w: invalid token id", model.ErrValidation)
	}
	var token model.Token
	if err := a.store.Read(ctx, store.Tokens, tokenID, &token); err != nil {
		return model.Token{}, translate(err)
	}
	return token, nil
}

// Extend pushes the expiry of a still-valid token to now + ttl.
func (a *Authority) Extend(ctx context.Context, tokenID string) (model.Token, error) {
	token, err := a.Get(ctx, tokenID)
	if err != nil {
		return model.Token{}, err
	}
	now := a.now()
	if !token.ValidAt(now) {
		return model.Token{}, model.ErrTokenExpired
	}

	token.Expires = now.Add(a.ttl).UnixMilli()
	if err := a.store.Update(ctx, store.Tokens, token.ID, token); err != nil {
		return model.Token{}, translate(err)
	}
	return token, nil
}

// Revoke deletes the token record.
func (a *Authority) Revoke(ctx context.Context, tokenID string) error {
	tokenID = strings.TrimSpace(tokenID)
	if !ValidID(tokenID, a.tokenLen) {
		return fmt.Errorf("%w: invalid token id", model.ErrValidation)
	}
	if err := a.store.Delete(ctx, store.Tokens, tokenID); err != nil {
		return translate(err)
	}
	return nil
}

// translate maps store errors onto the service taxonomy.
func translate(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.ErrNotFound
	case errors.Is(err, store.ErrExists):
		return model.ErrConflict
	default:
		return fmt.Errorf("%w: %v", model.ErrStore, err)
	}
}

// Package users implements account registration and profile management.
package users

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

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	TOSAgreement bool   `json:"tosAgreement"`
}

// UpdateInput is the body of a profile update. Empty fields are left unchanged.
type UpdateInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// Service manages user records.
type Service struct {
	store  store.Store
	tokens *auth.Authority
	logger *slog.Logger
}

// NewService returns a Service. A nil logger selects slog.Default().
func NewService(s store.Store, tokens *auth.Authority, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, tokens: tokens, logger: logger}
}

// Register creates a user.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	phone := strings.TrimSpace(in.Phone)
	switch {
	case !model.ValidName(in.FirstName), !model.ValidName(in.LastName):
		return fmt.Errorf("%w: first and last name are required", model.ErrValidation)
	case !model.ValidPhone(phone):
		return fmt.Errorf("%w: phone must be %d characters", model.ErrValidation, model.PhoneLength)
	case !model.ValidPassword(in.Password):
		return fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, model.MinPasswordLength)
	case !in.TOSAgreement:
		return fmt.Errorf("%w: terms of service must be accepted", model.ErrValidation)
	}

	hash, err := s.tokens.Hasher().Hash(in.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStore, err)
	}
	user := model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        phone,
		PasswordHash: hash,
		TOSAgreement: true,
	}
	if err := s.store.Create(ctx, store.Users, phone, user); err != nil {
		if errors.Is(err, store.ErrExists) {
			return fmt.Errorf("%w: user %s", model.ErrConflict, phone)
		}
		return fmt.Errorf("%w: create user: %v", model.ErrStore, err)
	}

	s.logger.Info("user registered", "phone", phone)
	return nil
}

// Get returns the profile of phone. token must belong to that user.
func (s *Service) Get(ctx context.Context, phone, token string) (model.Profile, error) {
	user, err := s.authorized(ctx, phone, token)
	if err != nil {
		return model.Profile{}, err
	}
	return user.Profile(), nil
}

// Update changes the names and/or password of a user.
func (s *Service) Update(ctx context.Context, in UpdateInput, token string) (model.Profile, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	changePassword := model.ValidPassword(in.Password)
	if first == "" && last == "" && !changePassword {
		return model.Profile{}, fmt.Errorf("%w: nothing to update", model.ErrValidation)
	}

	user, err := s.authorized(ctx, in.Phone, token)
	if err != nil {
		return model.Profile{}, err
	}

	if first != "" {
		user.FirstName = first
	}
	if last != "" {
		user.LastName = last
	}
	if changePassword {
		hash, err := s.tokens.Hasher().Hash(in.Password)
		if err != nil {
			return model.Profile{}, fmt.Errorf("%w: %v", model.ErrStore, err)
		}
		user.PasswordHash = hash
	}

	if err := s.store.Update(ctx, store.Users, user.Phone, user); err != nil {
		return model.Profile{}, fmt.Errorf("%w: update user: %v", model.ErrStore, err)
	}
	return user.Profile(), nil
}

// Delete removes a user and then every check the user owned. Check deletion
// failures are logged; the user is already gone at that point.
func (s *Service) Delete(ctx context.Context, phone, token string) error {
	user, err := s.authorized(ctx, phone, token)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, store.Users, user.Phone); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("%w: delete user: %v", model.ErrStore, err)
	}

	for _, id := range user.Checks {
		if err := s.store.Delete(ctx, store.Checks, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("failed to delete owned check",
				"phone", user.Phone, "check_id", id, "error", err)
		}
	}

	s.logger.Info("user deleted", "phone", user.Phone, "checks", len(user.Checks))
	return nil
}

// authorized validates phone, verifies token against it and loads the user.
func (s *Service) authorized(ctx context.Context, phone, token string) (model.User, error) {
	phone = strings.TrimSpace(phone)
	if !model.ValidPhone(phone) {
		return model.User{}, fmt.Errorf("%w: phone must be %d characters", model.ErrValidation, model.PhoneLength)
	}
	if !s.tokens.Verify(ctx, token, phone) {
		return model.User{}, model.ErrAuth
	}

	var user model.User
	if err := s.store.Read(ctx, store.Users, phone, &user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("%w: read user: %v", model.ErrStore, err)
	}
	return user, nil
}

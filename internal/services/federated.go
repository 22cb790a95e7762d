package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fathima-sithara/account-service/internal/events"
	"github.com/fathima-sithara/account-service/internal/metrics"
	"github.com/fathima-sithara/account-service/internal/models"
	"github.com/fathima-sithara/account-service/internal/oauth"
	"github.com/fathima-sithara/account-service/internal/repository"
)

// ReconcileFederated matches a federated identity to a local account by
// email, creating one when none exists. Federated accounts skip the OTP
// flow entirely; the provider already vouched for the address. The caller
// mints the session token from the returned account.
func (s *authService) ReconcileFederated(ctx context.Context, id *oauth.Identity) (*models.User, error) {
	if id == nil || id.Email == "" {
		return nil, ErrInvalidEmail
	}

	user, err := s.repo.FindByEmail(ctx, id.Email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		user = &models.User{
			Name:            id.Name,
			Email:           id.Email,
			Provider:        id.Provider,
			IsEmailVerified: id.EmailVerified,
			IsActive:        true,
			MFAEnabled:      s.cfg.Security.MFAEnabledDefault,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		metrics.Registrations.WithLabelValues("federated").Inc()
		s.producer.Publish(ctx, events.UserRegistered, user.ID.Hex(), user.Provider)
		s.log.Info("federated account created",
			zap.String("userId", user.ID.Hex()), zap.String("provider", id.Provider))

	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)

	default:
		// Existing account: record the provider and lift the email to
		// verified if the provider confirmed it.
		patch := models.UserPatch{Provider: &id.Provider}
		active := true
		patch.IsActive = &active
		if id.EmailVerified && !user.IsEmailVerified {
			verified := true
			patch.IsEmailVerified = &verified
			user.IsEmailVerified = true
		}
		if err := s.repo.UpdateFields(ctx, user.ID.Hex(), patch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		user.Provider = id.Provider
		user.IsActive = true
	}

	metrics.Logins.WithLabelValues("federated").Inc()
	s.producer.Publish(ctx, events.UserLoggedIn, user.ID.Hex(), user.Provider)
	return user, nil
}

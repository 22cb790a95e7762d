package repository

import (
	"context"
	"errors"

	"github.com/fathima-sithara/account-service/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already taken")
	ErrDuplicatePhone = errors.New("phone number already taken")
)

// UserRepository is the persistence contract for account records.
//
// Create enforces the two independent uniqueness constraints (email,
// phone_number) and reports which one was violated. UpdateFields applies a
// partial patch atomically; concurrent readers never observe a half-applied
// update. Lookups return ErrUserNotFound rather than (nil, nil).
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmailAndPhone(ctx context.Context, email, phone string) (*models.User, error)
	// FindByIdentifiers resolves an account by whichever identifiers are
	// non-empty (logical OR across username, email, phone).
	FindByIdentifiers(ctx context.Context, username, email, phone string) (*models.User, error)
	UpdateFields(ctx context.Context, id string, patch models.UserPatch) error
}

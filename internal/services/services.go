package services

import (
	"context"
	"errors"

	"github.com/fathima-sithara/account-service/internal/models"
	"github.com/fathima-sithara/account-service/internal/oauth"
)

// Domain errors. Handlers map these to HTTP statuses with errors.Is; the
// service layer never touches transport concerns.
var (
	ErrMissingFields      = errors.New("name, email, phone number and password are required")
	ErrInvalidName        = errors.New("name must be 3-50 letters and spaces")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrWeakPassword       = errors.New("password does not meet the security requirements")
	ErrUserAlreadyExists  = errors.New("an account with this email already exists")
	ErrPhoneAlreadyExists = errors.New("an account with this phone number already exists")

	ErrIdentifierRequired = errors.New("username, email or phone number is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidUser        = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email is not verified")
	ErrPhoneNotVerified   = errors.New("phone number is not verified")
	ErrAccountInactive    = errors.New("account is inactive")

	ErrInvalidOTP      = errors.New("invalid otp")
	ErrOTPExpired      = errors.New("otp has expired")
	ErrAlreadyVerified = errors.New("already verified")
	ErrOTPRateLimited  = errors.New("too many otp requests, try again later")
	ErrDispatchFailed  = errors.New("failed to send verification code")

	ErrInternal = errors.New("internal error")
)

// Notifier delivers verification codes. The production implementation fans
// out to Brevo and Twilio; tests substitute a recording fake.
type Notifier interface {
	SendEmailOTP(ctx context.Context, toEmail, name, otp string) error
	SendSMSOTP(ctx context.Context, toPhone, otp string) error
}

// AuthService is the account lifecycle contract consumed by the handlers.
// Authenticate and ReconcileFederated return the account record; the caller
// mints the session token from it.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, username, email, phone, password string) (*models.User, error)
	VerifyEmail(ctx context.Context, email, otp string) error
	VerifyPhone(ctx context.Context, phone, otp string) error
	VerifyEmailAndPhone(ctx context.Context, email, phone, otp string) error
	ResendOTP(ctx context.Context, email, phone string) error
	ReconcileFederated(ctx context.Context, id *oauth.Identity) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

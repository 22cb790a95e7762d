package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fathima-sithara/account-service/internal/config"
	"github.com/fathima-sithara/account-service/internal/events"
	"github.com/fathima-sithara/account-service/internal/metrics"
	"github.com/fathima-sithara/account-service/internal/models"
	"github.com/fathima-sithara/account-service/internal/repository"
	"github.com/fathima-sithara/account-service/internal/security"
)

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s]{3,50}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// resendLimiter bounds how often an account may request a fresh code.
type resendLimiter interface {
	Allow(ctx context.Context, userID string) error
}

// redisResendLimiter counts resends per account in a fixed hour window.
type redisResendLimiter struct {
	rdb     *redis.Client
	perHour int
	log     *zap.Logger
}

func (l *redisResendLimiter) Allow(ctx context.Context, userID string) error {
	key := "otp_resend:" + userID
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn("otp rate limit check failed", zap.String("userId", userID), zap.Error(err))
		return nil
	}
	if count == 1 {
		l.rdb.Expire(ctx, key, time.Hour)
	}
	if count > int64(l.perHour) {
		return ErrOTPRateLimited
	}
	return nil
}

type authService struct {
	repo     repository.UserRepository
	notifier Notifier
	limiter  resendLimiter
	producer *events.Producer
	cfg      *config.Config
	log      *zap.Logger
}

// NewAuthService wires the account service. rdb and producer may be nil;
// rate limiting and event publication are then skipped.
func NewAuthService(
	repo repository.UserRepository,
	notifier Notifier,
	rdb *redis.Client,
	producer *events.Producer,
	cfg *config.Config,
	log *zap.Logger,
) AuthService {
	s := &authService{
		repo:     repo,
		notifier: notifier,
		producer: producer,
		cfg:      cfg,
		log:      log,
	}
	if rdb != nil && cfg.Security.OtpResendPerHour > 0 {
		s.limiter = &redisResendLimiter{
			rdb:     rdb,
			perHour: cfg.Security.OtpResendPerHour,
			log:     log,
		}
	}
	return s
}

func (s *authService) checkPassword(password string) error {
	for i := range s.cfg.Validations.Password {
		r := &s.cfg.Validations.Password[i]
		if !r.Matches(password) {
			return fmt.Errorf("%w: %s", ErrWeakPassword, r.Message)
		}
	}
	return nil
}

// Register creates an unverified credentials account and dispatches the
// shared verification code over both channels. The account survives a
// dispatch failure; a resend recovers delivery.
func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.PhoneNumber)

	if name == "" || email == "" || phone == "" || req.Password == "" {
		return nil, ErrMissingFields
	}
	if !nameRe.MatchString(name) {
		return nil, ErrInvalidName
	}
	if !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if !phoneRe.MatchString(phone) {
		return nil, ErrInvalidPhoneNumber
	}
	if err := s.checkPassword(req.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		metrics.Registrations.WithLabelValues("duplicate_email").Inc()
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
		metrics.Registrations.WithLabelValues("duplicate_phone").Inc()
		return nil, ErrPhoneAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	hash, err := security.HashPassword(req.Password, s.cfg.Security.PasswordHashCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	otp, err := security.GenerateOTP(s.cfg.Security.OtpLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	expiry := security.OTPExpiry(time.Now(), s.cfg.Security.OtpTTLMinutes)

	user := &models.User{
		Name:                  name,
		Email:                 email,
		PhoneNumber:           phone,
		PasswordHash:          hash,
		IsActive:              true,
		Provider:              models.ProviderCredentials,
		MFAEnabled:            s.cfg.Security.MFAEnabledDefault,
		EmailVerificationOTP:  otp,
		PhoneVerificationOTP:  otp,
		VerificationOTPExpiry: &expiry,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			metrics.Registrations.WithLabelValues("duplicate_email").Inc()
			return nil, ErrUserAlreadyExists
		case errors.Is(err, repository.ErrDuplicatePhone):
			metrics.Registrations.WithLabelValues("duplicate_phone").Inc()
			return nil, ErrPhoneAlreadyExists
		default:
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	s.producer.Publish(ctx, events.UserRegistered, user.ID.Hex(), user.Provider)
	s.log.Info("account registered", zap.String("userId", user.ID.Hex()))

	if err := s.dispatchOTP(ctx, user, otp); err != nil {
		return user, err
	}
	return user, nil
}

// dispatchOTP sends the code over both channels. The first configured
// channel that fails aborts with ErrDispatchFailed.
func (s *authService) dispatchOTP(ctx context.Context, u *models.User, otp string) error {
	if err := s.notifier.SendEmailOTP(ctx, u.Email, u.Name, otp); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	metrics.OTPsSent.WithLabelValues("email").Inc()

	if err := s.notifier.SendSMSOTP(ctx, u.PhoneNumber, otp); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	metrics.OTPsSent.WithLabelValues("sms").Inc()
	return nil
}

// Authenticate checks credentials against whichever identifier was supplied
// and returns the account for the caller to mint a session from. Check
// order is fixed so a caller always gets the earliest applicable failure.
func (s *authService) Authenticate(ctx context.Context, username, email, phone, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)

	if username == "" && email == "" && phone == "" {
		return nil, ErrIdentifierRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	user, err := s.repo.FindByIdentifiers(ctx, username, email, phone)
	if errors.Is(err, repository.ErrUserNotFound) {
		metrics.Logins.WithLabelValues("unknown_user").Inc()
		return nil, ErrInvalidUser
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if user.PasswordHash == "" || !security.CheckPassword(user.PasswordHash, password) {
		metrics.Logins.WithLabelValues("bad_credentials").Inc()
		return nil, ErrInvalidCredentials
	}
	if user.Email != "" && !user.IsEmailVerified {
		metrics.Logins.WithLabelValues("email_unverified").Inc()
		return nil, ErrEmailNotVerified
	}
	if user.PhoneNumber != "" && !user.IsPhoneVerified {
		metrics.Logins.WithLabelValues("phone_unverified").Inc()
		return nil, ErrPhoneNotVerified
	}
	if !user.IsActive {
		metrics.Logins.WithLabelValues("inactive").Inc()
		return nil, ErrAccountInactive
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateFields(ctx, user.ID.Hex(), models.UserPatch{LastLogin: &now}); err != nil {
		s.log.Warn("failed to record last login", zap.String("userId", user.ID.Hex()), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	metrics.Logins.WithLabelValues("success").Inc()
	s.producer.Publish(ctx, events.UserLoggedIn, user.ID.Hex(), user.Provider)
	return user, nil
}

func (s *authService) otpExpired(u *models.User, now time.Time) bool {
	return u.VerificationOTPExpiry == nil || now.After(*u.VerificationOTPExpiry)
}

// VerifyEmail confirms the email channel with the shared code and activates
// the account.
func (s *authService) VerifyEmail(ctx context.Context, email, otp string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrInvalidUser
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}
	if user.EmailVerificationOTP == "" || user.EmailVerificationOTP != otp {
		metrics.OTPsVerified.WithLabelValues("email", "invalid").Inc()
		return ErrInvalidOTP
	}
	if s.otpExpired(user, time.Now().UTC()) {
		metrics.OTPsVerified.WithLabelValues("email", "expired").Inc()
		return ErrOTPExpired
	}

	// The shared code stays live for the other channel until it expires.
	verified, active := true, true
	if err := s.repo.UpdateFields(ctx, user.ID.Hex(), models.UserPatch{
		IsEmailVerified: &verified,
		IsActive:        &active,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	metrics.OTPsVerified.WithLabelValues("email", "success").Inc()
	s.producer.Publish(ctx, events.UserVerified, user.ID.Hex(), user.Provider)
	return nil
}

// VerifyPhone confirms the phone channel with the shared code and activates
// the account.
func (s *authService) VerifyPhone(ctx context.Context, phone, otp string) error {
	phone = strings.TrimSpace(phone)
	user, err := s.repo.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrInvalidUser
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if user.IsPhoneVerified {
		return ErrAlreadyVerified
	}
	if user.PhoneVerificationOTP == "" || user.PhoneVerificationOTP != otp {
		metrics.OTPsVerified.WithLabelValues("sms", "invalid").Inc()
		return ErrInvalidOTP
	}
	if s.otpExpired(user, time.Now().UTC()) {
		metrics.OTPsVerified.WithLabelValues("sms", "expired").Inc()
		return ErrOTPExpired
	}

	// The shared code stays live for the other channel until it expires.
	verified, active := true, true
	if err := s.repo.UpdateFields(ctx, user.ID.Hex(), models.UserPatch{
		IsPhoneVerified: &verified,
		IsActive:        &active,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	metrics.OTPsVerified.WithLabelValues("sms", "success").Inc()
	s.producer.Publish(ctx, events.UserVerified, user.ID.Hex(), user.Provider)
	return nil
}

// VerifyEmailAndPhone confirms both channels in one step with the shared
// code.
func (s *authService) VerifyEmailAndPhone(ctx context.Context, email, phone, otp string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)

	user, err := s.repo.FindByEmailAndPhone(ctx, email, phone)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrInvalidUser
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if user.IsEmailVerified && user.IsPhoneVerified {
		return ErrAlreadyVerified
	}
	// The shared code must match both stored fields so a stale single-channel
	// code cannot confirm the whole account.
	if otp == "" || otp != user.EmailVerificationOTP || otp != user.PhoneVerificationOTP {
		metrics.OTPsVerified.WithLabelValues("both", "invalid").Inc()
		return ErrInvalidOTP
	}
	if s.otpExpired(user, time.Now().UTC()) {
		metrics.OTPsVerified.WithLabelValues("both", "expired").Inc()
		return ErrOTPExpired
	}

	verified, active := true, true
	if err := s.repo.UpdateFields(ctx, user.ID.Hex(), models.UserPatch{
		IsEmailVerified: &verified,
		IsPhoneVerified: &verified,
		IsActive:        &active,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	metrics.OTPsVerified.WithLabelValues("both", "success").Inc()
	s.producer.Publish(ctx, events.UserVerified, user.ID.Hex(), user.Provider)
	return nil
}

// ResendOTP issues a fresh shared code, invalidating the previous one, and
// dispatches it over both channels. Resends are rate limited per account.
func (s *authService) ResendOTP(ctx context.Context, email, phone string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)

	user, err := s.repo.FindByEmailAndPhone(ctx, email, phone)
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrInvalidUser
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if user.IsEmailVerified && user.IsPhoneVerified {
		return ErrAlreadyVerified
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, user.ID.Hex()); err != nil {
			return err
		}
	}

	otp, err := security.GenerateOTP(s.cfg.Security.OtpLength)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	expiry := security.OTPExpiry(time.Now(), s.cfg.Security.OtpTTLMinutes)

	if err := s.repo.UpdateFields(ctx, user.ID.Hex(), models.UserPatch{
		EmailVerificationOTP:  &otp,
		PhoneVerificationOTP:  &otp,
		VerificationOTPExpiry: &expiry,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user.Email, user.PhoneNumber = email, phone
	return s.dispatchOTP(ctx, user, otp)
}

func (s *authService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidUser
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return user, nil
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/account-service/internal/config"
	"github.com/fathima-sithara/account-service/internal/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.JWT.Secret = "test-secret"
	cfg.App.JWT.AccessTTLMinutes = 15
	cfg.Security.OtpLength = 6
	cfg.Security.OtpTTLMinutes = 10
	cfg.Security.PasswordHashCost = 4
	cfg.Security.OtpResendPerHour = 5
	cfg.Validations.Password = []config.PasswordRule{
		{Regex: `.{8,}`, Message: "password must be at least 8 characters"},
		{Regex: `[a-z]`, Message: "password must contain a lowercase letter"},
		{Regex: `[A-Z]`, Message: "password must contain an uppercase letter"},
		{Regex: `[0-9]`, Message: "password must contain a digit"},
		{Regex: `[^a-zA-Z0-9]`, Message: "password must contain a special character"},
	}
	return cfg
}

func newTestService(t *testing.T) (AuthService, *fakeUserRepo, *fakeNotifier) {
	t.Helper()
	repo := newFakeUserRepo()
	n := &fakeNotifier{}
	svc := NewAuthService(repo, n, nil, nil, testConfig(), zap.NewNop())
	return svc, repo, n
}

func validRegistration() models.RegisterRequest {
	return models.RegisterRequest{
		Name:        "Alice Smith",
		Email:       "alice@example.com",
		PhoneNumber: "+14155550100",
		Password:    "Str0ng!pass",
	}
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	svc, repo, n := newTestService(t)

	user, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	stored := repo.get(user.ID.Hex())
	if stored == nil {
		t.Fatal("account was not persisted")
	}
	if stored.IsEmailVerified || stored.IsPhoneVerified {
		t.Fatalf("new account must start unverified: %+v", stored)
	}
	if !stored.IsActive {
		t.Fatal("new account must start active")
	}
	if stored.Provider != models.ProviderCredentials {
		t.Fatalf("expected credentials provider, got %q", stored.Provider)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "Str0ng!pass" {
		t.Fatal("password must be stored hashed")
	}
	if stored.EmailVerificationOTP == "" || stored.EmailVerificationOTP != stored.PhoneVerificationOTP {
		t.Fatal("both channels must carry the same verification code")
	}
	if len(stored.EmailVerificationOTP) != 6 {
		t.Fatalf("expected 6-digit code, got %q", stored.EmailVerificationOTP)
	}
	if stored.VerificationOTPExpiry == nil || !stored.VerificationOTPExpiry.After(time.Now()) {
		t.Fatal("verification code must carry a future expiry")
	}
	if n.countFor("email") != 1 || n.countFor("sms") != 1 {
		t.Fatalf("expected one dispatch per channel, got %d email, %d sms",
			n.countFor("email"), n.countFor("sms"))
	}
	if !n.sameCodeBothChannels() {
		t.Fatal("both channels must receive the same code")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*models.RegisterRequest)
		wantErr error
	}{
		{"missing email", func(r *models.RegisterRequest) { r.Email = "" }, ErrMissingFields},
		{"missing password", func(r *models.RegisterRequest) { r.Password = "" }, ErrMissingFields},
		{"short name", func(r *models.RegisterRequest) { r.Name = "Al" }, ErrInvalidName},
		{"name with digits", func(r *models.RegisterRequest) { r.Name = "Alice 99" }, ErrInvalidName},
		{"bad email", func(r *models.RegisterRequest) { r.Email = "not-an-email" }, ErrInvalidEmail},
		{"bad phone", func(r *models.RegisterRequest) { r.PhoneNumber = "0000" }, ErrInvalidPhoneNumber},
		{"short password", func(r *models.RegisterRequest) { r.Password = "S0r!t" }, ErrWeakPassword},
		{"no uppercase", func(r *models.RegisterRequest) { r.Password = "weakpass1!" }, ErrWeakPassword},
		{"no special", func(r *models.RegisterRequest) { r.Password = "Weakpass11" }, ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegistration()
			tc.mutate(&req)
			if _, err := svc.Register(ctx, req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	dupEmail := validRegistration()
	dupEmail.PhoneNumber = "+14155550199"
	if _, err := svc.Register(ctx, dupEmail); !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}

	dupPhone := validRegistration()
	dupPhone.Email = "other@example.com"
	if _, err := svc.Register(ctx, dupPhone); !errors.Is(err, ErrPhoneAlreadyExists) {
		t.Fatalf("expected ErrPhoneAlreadyExists, got %v", err)
	}
}

func TestRegisterDispatchFailureKeepsAccount(t *testing.T) {
	svc, repo, n := newTestService(t)
	n.emailErr = errors.New("brevo 500")

	user, err := svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	if user == nil || repo.get(user.ID.Hex()) == nil {
		t.Fatal("account must survive a dispatch failure")
	}

	// Delivery recovers via resend once the channel works again.
	n.emailErr = nil
	if err := svc.ResendOTP(context.Background(), user.Email, user.PhoneNumber); err != nil {
		t.Fatalf("ResendOTP after dispatch failure: %v", err)
	}
}

func verifyAll(t *testing.T, svc AuthService, repo *fakeUserRepo, userID string) {
	t.Helper()
	u := repo.get(userID)
	if err := svc.VerifyEmailAndPhone(context.Background(), u.Email, u.PhoneNumber, u.EmailVerificationOTP); err != nil {
		t.Fatalf("VerifyEmailAndPhone failed: %v", err)
	}
}

func TestVerifyEmailActivatesAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	otp := repo.get(user.ID.Hex()).EmailVerificationOTP

	if err := svc.VerifyEmail(ctx, user.Email, otp); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	stored := repo.get(user.ID.Hex())
	if !stored.IsEmailVerified || !stored.IsActive {
		t.Fatalf("verify must set verified and active: %+v", stored)
	}

	// Replay fails: the account is already verified on this channel.
	if err := svc.VerifyEmail(ctx, user.Email, otp); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified on replay, got %v", err)
	}
}

func TestVerifyAccountCompletesAfterSingleChannel(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	otp := repo.get(user.ID.Hex()).EmailVerificationOTP

	if err := svc.VerifyEmail(ctx, user.Email, otp); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	// The shared code is still live, so it can finish the phone channel
	// through the combined endpoint.
	if err := svc.VerifyEmailAndPhone(ctx, user.Email, user.PhoneNumber, otp); err != nil {
		t.Fatalf("combined verify with the still-live shared code failed: %v", err)
	}

	stored := repo.get(user.ID.Hex())
	if !stored.IsEmailVerified || !stored.IsPhoneVerified || !stored.IsActive {
		t.Fatalf("expected fully verified active account: %+v", stored)
	}
}

func TestVerifyEmailFailureOrder(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := svc.VerifyEmail(ctx, "ghost@example.com", "123456"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("unknown account: expected ErrInvalidUser, got %v", err)
	}
	if err := svc.VerifyEmail(ctx, user.Email, "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("wrong code: expected ErrInvalidOTP, got %v", err)
	}

	// Expire the code: a correct but stale code reports expiry, not mismatch.
	past := time.Now().Add(-time.Minute).UTC()
	stored := repo.get(user.ID.Hex())
	stored.VerificationOTPExpiry = &past
	if err := svc.VerifyEmail(ctx, user.Email, stored.EmailVerificationOTP); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expired code: expected ErrOTPExpired, got %v", err)
	}
}

func TestVerifyPhoneMarksChannel(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	otp := repo.get(user.ID.Hex()).PhoneVerificationOTP

	if err := svc.VerifyPhone(ctx, user.PhoneNumber, otp); err != nil {
		t.Fatalf("VerifyPhone failed: %v", err)
	}
	stored := repo.get(user.ID.Hex())
	if !stored.IsPhoneVerified {
		t.Fatal("phone must be marked verified")
	}
	if stored.IsEmailVerified {
		t.Fatal("email channel must stay untouched")
	}
}

func TestVerifyAccountConfirmsBothChannels(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	verifyAll(t, svc, repo, user.ID.Hex())

	stored := repo.get(user.ID.Hex())
	if !stored.IsEmailVerified || !stored.IsPhoneVerified || !stored.IsActive {
		t.Fatalf("expected fully verified active account: %+v", stored)
	}
	if err := svc.VerifyEmailAndPhone(ctx, user.Email, user.PhoneNumber, "123456"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestResendOverwritesCode(t *testing.T) {
	svc, repo, n := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	oldOTP := repo.get(user.ID.Hex()).EmailVerificationOTP

	if err := svc.ResendOTP(ctx, user.Email, user.PhoneNumber); err != nil {
		t.Fatalf("ResendOTP failed: %v", err)
	}
	stored := repo.get(user.ID.Hex())
	newOTP := stored.EmailVerificationOTP
	if newOTP == "" || stored.PhoneVerificationOTP != newOTP {
		t.Fatal("resend must write the same fresh code to both channels")
	}
	if n.lastOTP() != newOTP {
		t.Fatal("dispatched code must match the stored code")
	}

	// The superseded code is dead even if oldOTP happens to differ.
	if oldOTP != newOTP {
		if err := svc.VerifyEmail(ctx, user.Email, oldOTP); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("superseded code: expected ErrInvalidOTP, got %v", err)
		}
	}
	if err := svc.VerifyEmail(ctx, user.Email, newOTP); err != nil {
		t.Fatalf("fresh code must verify: %v", err)
	}
}

func TestResendRateLimited(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	svc.(*authService).limiter = &fakeResendLimiter{limit: 2}

	for i := 0; i < 2; i++ {
		if err := svc.ResendOTP(ctx, user.Email, user.PhoneNumber); err != nil {
			t.Fatalf("resend %d within limit failed: %v", i+1, err)
		}
	}
	if err := svc.ResendOTP(ctx, user.Email, user.PhoneNumber); !errors.Is(err, ErrOTPRateLimited) {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}
}

func TestResendForUnknownOrVerifiedAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.ResendOTP(ctx, "ghost@example.com", "+14155550100"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	verifyAll(t, svc, repo, user.ID.Hex())
	if err := svc.ResendOTP(ctx, user.Email, user.PhoneNumber); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestAuthenticateCheckOrder(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "", "", "", "pw"); !errors.Is(err, ErrIdentifierRequired) {
		t.Fatalf("expected ErrIdentifierRequired, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "", "alice@example.com", "", ""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "", "ghost@example.com", "", "pw"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "", user.Email, "", "WrongPass1!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	// Correct password but unverified email blocks before the phone check.
	if _, err := svc.Authenticate(ctx, "", user.Email, "", "Str0ng!pass"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}

	otp := repo.get(user.ID.Hex()).EmailVerificationOTP
	if err := svc.VerifyEmail(ctx, user.Email, otp); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "", user.Email, "", "Str0ng!pass"); !errors.Is(err, ErrPhoneNotVerified) {
		t.Fatalf("expected ErrPhoneNotVerified, got %v", err)
	}
}

func TestAuthenticateSuccessByEachIdentifier(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	verifyAll(t, svc, repo, user.ID.Hex())

	for _, tc := range []struct {
		name                   string
		username, email, phone string
	}{
		{"by email", "", "alice@example.com", ""},
		{"by phone", "", "", "+14155550100"},
		{"by username", "Alice Smith", "", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tc.username, tc.email, tc.phone, "Str0ng!pass")
			if err != nil {
				t.Fatalf("Authenticate failed: %v", err)
			}
			if got.ID != user.ID {
				t.Fatalf("resolved wrong account: %s vs %s", got.ID.Hex(), user.ID.Hex())
			}
		})
	}

	if repo.get(user.ID.Hex()).LastLogin == nil {
		t.Fatal("last login must be recorded")
	}
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	verifyAll(t, svc, repo, user.ID.Hex())

	stored := repo.get(user.ID.Hex())
	stored.IsActive = false

	if _, err := svc.Authenticate(ctx, "", user.Email, "", "Str0ng!pass"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	got, err := svc.GetByID(ctx, user.ID.Hex())
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Email != user.Email {
		t.Fatalf("expected %s, got %s", user.Email, got.Email)
	}
	if _, err := svc.GetByID(ctx, "64b000000000000000000000"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

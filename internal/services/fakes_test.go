package services

import (
	"context"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fathima-sithara/account-service/internal/models"
	"github.com/fathima-sithara/account-service/internal/repository"
)

// fakeUserRepo is an in-memory UserRepository with the same uniqueness
// semantics as the Mongo implementation.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if u.Email != "" && existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
		if u.PhoneNumber != "" && existing.PhoneNumber == u.PhoneNumber {
			return repository.ErrDuplicatePhone
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	f.users[u.ID.Hex()] = &cp
	return nil
}

func (f *fakeUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email != "" && u.Email == email })
}

func (f *fakeUserRepo) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.PhoneNumber != "" && u.PhoneNumber == phone })
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID.Hex() == id })
}

func (f *fakeUserRepo) FindByEmailAndPhone(_ context.Context, email, phone string) (*models.User, error) {
	return f.find(func(u *models.User) bool {
		return u.Email == email && u.PhoneNumber == phone
	})
}

func (f *fakeUserRepo) FindByIdentifiers(_ context.Context, username, email, phone string) (*models.User, error) {
	return f.find(func(u *models.User) bool {
		if username != "" && u.Name == username {
			return true
		}
		if email != "" && u.Email == email {
			return true
		}
		if phone != "" && u.PhoneNumber == phone {
			return true
		}
		return false
	})
}

func (f *fakeUserRepo) UpdateFields(_ context.Context, id string, patch models.UserPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if patch.IsEmailVerified != nil {
		u.IsEmailVerified = *patch.IsEmailVerified
	}
	if patch.IsPhoneVerified != nil {
		u.IsPhoneVerified = *patch.IsPhoneVerified
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.Provider != nil {
		u.Provider = *patch.Provider
	}
	if patch.EmailVerificationOTP != nil {
		u.EmailVerificationOTP = *patch.EmailVerificationOTP
	}
	if patch.PhoneVerificationOTP != nil {
		u.PhoneVerificationOTP = *patch.PhoneVerificationOTP
	}
	if patch.VerificationOTPExpiry != nil {
		t := *patch.VerificationOTPExpiry
		u.VerificationOTPExpiry = &t
	}
	if patch.LastLogin != nil {
		t := *patch.LastLogin
		u.LastLogin = &t
	}
	return nil
}

// get returns the stored record without copy semantics, for assertions.
func (f *fakeUserRepo) get(id string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

// fakeResendLimiter permits a fixed number of resends per account.
type fakeResendLimiter struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

func (l *fakeResendLimiter) Allow(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.counts[userID]++
	if l.counts[userID] > l.limit {
		return ErrOTPRateLimited
	}
	return nil
}

type sentMessage struct {
	channel string
	to      string
	otp     string
}

// fakeNotifier records dispatched codes and can be told to fail.
type fakeNotifier struct {
	mu       sync.Mutex
	sent     []sentMessage
	emailErr error
	smsErr   error
}

func (n *fakeNotifier) SendEmailOTP(_ context.Context, toEmail, _, otp string) error {
	if n.emailErr != nil {
		return n.emailErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{channel: "email", to: toEmail, otp: otp})
	return nil
}

func (n *fakeNotifier) SendSMSOTP(_ context.Context, toPhone, otp string) error {
	if n.smsErr != nil {
		return n.smsErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{channel: "sms", to: toPhone, otp: otp})
	return nil
}

func (n *fakeNotifier) lastOTP() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return ""
	}
	return n.sent[len(n.sent)-1].otp
}

func (n *fakeNotifier) countFor(channel string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.channel == channel {
			c++
		}
	}
	return c
}

func (n *fakeNotifier) sameCodeBothChannels() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	var email, sms []string
	for _, m := range n.sent {
		if m.channel == "email" {
			email = append(email, m.otp)
		} else {
			sms = append(sms, m.otp)
		}
	}
	return len(email) == len(sms) && strings.Join(email, ",") == strings.Join(sms, ",")
}

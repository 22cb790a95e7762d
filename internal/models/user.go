package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account providers.
const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
	ProviderFacebook    = "facebook"
)

// User is the persistent account record.
//
// Email and PhoneNumber are both optional, but each is unique among the
// accounts that carry one. Federation-only accounts have no PasswordHash.
// The two verification OTP fields hold the same code when issued by the
// shared registration/resend flow; VerificationOTPExpiry bounds both.
type User struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                  string             `bson:"name" json:"name"`
	Email                 string             `bson:"email,omitempty" json:"email,omitempty"`
	PhoneNumber           string             `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	PasswordHash          string             `bson:"password_hash,omitempty" json:"-"`
	IsEmailVerified       bool               `bson:"is_email_verified" json:"is_email_verified"`
	IsPhoneVerified       bool               `bson:"is_phone_verified" json:"is_phone_verified"`
	IsActive              bool               `bson:"is_active" json:"is_active"`
	IsAdmin               bool               `bson:"is_admin" json:"is_admin"`
	MFAEnabled            bool               `bson:"mfa_enabled" json:"mfa_enabled"`
	Provider              string             `bson:"provider" json:"provider"`
	EmailVerificationOTP  string             `bson:"email_verification_otp,omitempty" json:"-"`
	PhoneVerificationOTP  string             `bson:"phone_verification_otp,omitempty" json:"-"`
	VerificationOTPExpiry *time.Time         `bson:"verification_otp_expiry,omitempty" json:"-"`
	LastLogin             *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt             time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time          `bson:"updated_at" json:"updated_at"`
}

// UserPatch is a partial update applied atomically to one account.
// Only non-nil fields are written.
type UserPatch struct {
	IsEmailVerified       *bool
	IsPhoneVerified       *bool
	IsActive              *bool
	Provider              *string
	EmailVerificationOTP  *string
	PhoneVerificationOTP  *string
	VerificationOTPExpiry *time.Time
	LastLogin             *time.Time
}

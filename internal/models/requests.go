package models

// RegisterRequest is the signup payload. All four fields are required;
// format checks beyond tags live in the service layer.
type RegisterRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Password    string `json:"password" validate:"required"`
}

// LoginRequest carries one identifier (username, email or phone) plus the
// password. The generic Identifier field is classified by the handler.
type LoginRequest struct {
	Identifier  string `json:"identifier"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type VerifyPhoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	OTP         string `json:"otp" validate:"required"`
}

// VerifyAccountRequest verifies both channels at once with the shared code.
type VerifyAccountRequest struct {
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	OTP         string `json:"otp" validate:"required"`
}

type ResendOTPRequest struct {
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

// TokenClaims is the account view embedded in a session token.
type TokenClaims struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Name        string `json:"name"`
	Admin       bool   `json:"admin"`
}

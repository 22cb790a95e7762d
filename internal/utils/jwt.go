package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fathima-sithara/account-service/internal/models"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

// CustomClaims embeds the account attributes carried by a session token.
type CustomClaims struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Name        string `json:"name"`
	Admin       bool   `json:"admin"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 session tokens with a process-wide
// secret. It holds no other state; both operations are pure.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
}

func NewJWTManager(secret string, accessMinutes int) *JWTManager {
	return &JWTManager{
		secret:    []byte(secret),
		accessTTL: time.Duration(accessMinutes) * time.Minute,
	}
}

// Generate signs a token for the given account claims.
func (j *JWTManager) Generate(p models.TokenClaims) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(j.accessTTL)
	claims := &CustomClaims{
		Email:       p.Email,
		PhoneNumber: p.PhoneNumber,
		Name:        p.Name,
		Admin:       p.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	return signed, exp, err
}

// Verify parses and validates a token, returning the embedded claims.
func (j *JWTManager) Verify(tokenStr string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &models.TokenClaims{
		ID:          claims.Subject,
		Email:       claims.Email,
		PhoneNumber: claims.PhoneNumber,
		Name:        claims.Name,
		Admin:       claims.Admin,
	}, nil
}

package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOTP returns a numeric code of exactly `digits` digits, drawn
// uniformly from [0, 10^digits). Leading zeros are kept.
func GenerateOTP(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("otp length must be positive, got %d", digits)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// OTPExpiry computes the expiry instant for a code issued at `now`.
func OTPExpiry(now time.Time, minutes int) time.Time {
	return now.Add(time.Duration(minutes) * time.Minute).UTC()
}

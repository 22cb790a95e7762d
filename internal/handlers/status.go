package handlers

import (
	"errors"
	"net/http"

	"github.com/fathima-sithara/account-service/internal/services"
)

// statusFor maps domain errors to HTTP statuses. Anything unmapped is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidPhoneNumber),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrIdentifierRequired),
		errors.Is(err, services.ErrPasswordRequired),
		errors.Is(err, services.ErrInvalidOTP):
		return http.StatusBadRequest

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrOTPExpired):
		return http.StatusUnauthorized

	case errors.Is(err, services.ErrEmailNotVerified),
		errors.Is(err, services.ErrPhoneNotVerified),
		errors.Is(err, services.ErrAccountInactive):
		return http.StatusForbidden

	case errors.Is(err, services.ErrInvalidUser):
		return http.StatusNotFound

	case errors.Is(err, services.ErrUserAlreadyExists),
		errors.Is(err, services.ErrPhoneAlreadyExists),
		errors.Is(err, services.ErrAlreadyVerified):
		return http.StatusConflict

	case errors.Is(err, services.ErrOTPRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, services.ErrDispatchFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the `validate` tags on a request payload.
func ValidateStruct(s any) error {
	return validate.Struct(s)
}

// ValidationError is a single failed field in a boundary payload.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator.ValidationErrors into a
// user-presentable slice. Returns nil for non-validation errors.
func FormatValidationErrors(err error) []ValidationError {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]ValidationError, len(ve))
	for i, fe := range ve {
		out[i] = ValidationError{Field: fe.Field(), Tag: fe.Tag()}
		switch fe.Tag() {
		case "required":
			out[i].Message = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			out[i].Message = fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "e164":
			out[i].Message = fmt.Sprintf("%s must be a phone number in E.164 format", fe.Field())
		default:
			out[i].Message = fmt.Sprintf("%s failed validation for %q", fe.Field(), fe.Tag())
		}
	}
	return out
}

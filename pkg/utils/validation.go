package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "thoughtnet/pkg/errors"
)

var validate = validator.New()

// ValidateStruct validates a struct against its validation tags and
// returns a validation AppError with a human-readable message suitable
// for an API response.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError("invalid request").WithCause(err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, fieldMessage(e))
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "))
}

func fieldMessage(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

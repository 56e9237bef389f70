// Package validation turns binding errors into client-facing messages.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) []string {
	var errs []string

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := e.Field()
			tag := e.Tag()

			switch tag {
			case "required":
				errs = append(errs, fmt.Sprintf("%s is required", field))
			case "email":
				errs = append(errs, fmt.Sprintf("%s must be a valid email", field))
			case "min":
				errs = append(errs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
			case "max":
				errs = append(errs, fmt.Sprintf("%s must be at most %s", field, e.Param()))
			case "gte":
				errs = append(errs, fmt.Sprintf("%s must be >= %s", field, e.Param()))
			case "lte":
				errs = append(errs, fmt.Sprintf("%s must be <= %s", field, e.Param()))
			case "oneof":
				errs = append(errs, fmt.Sprintf("%s must be one of [%s]", field, e.Param()))
			default:
				errs = append(errs, fmt.Sprintf("%s is invalid (%s)", field, tag))
			}
		}
	}
	return errs
}

// Message is FormatValidationError joined into one line; non-validation
// errors (malformed JSON) fall back to a generic text.
func Message(err error) string {
	if errs := FormatValidationError(err); len(errs) > 0 {
		return strings.Join(errs, "; ")
	}
	return "invalid request body"
}

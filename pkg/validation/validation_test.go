package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type withdrawReq struct {
	Amount int64  `validate:"required,gte=1"`
	Bank   string `validate:"required"`
	Role   string `validate:"oneof=student tutor"`
}

func TestFormatValidationError(t *testing.T) {
	err := validator.New().Struct(withdrawReq{Role: "admin"})
	msgs := FormatValidationError(err)
	assert.ElementsMatch(t, []string{
		"Amount is required",
		"Bank is required",
		"Role must be one of [student tutor]",
	}, msgs)
	assert.Contains(t, Message(err), "Bank is required")
}

func TestMessageFallback(t *testing.T) {
	assert.Equal(t, "invalid request body", Message(errors.New("unexpected EOF")))
}

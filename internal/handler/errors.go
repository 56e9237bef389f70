package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sinedi/internal/auth"
	"sinedi/internal/service"
	"sinedi/internal/store"
	"sinedi/pkg/logger"
	"sinedi/pkg/validation"
)

// statusFor maps service errors onto HTTP statuses. Anything unknown is a
// store failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrRatingRequired),
		errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrTooManyActiveJobs),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, service.ErrChatLocked),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUploadUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logger.WithField("path", c.FullPath()).Errorf("[http] %v", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

// bindJSON decodes the body and answers 400 with readable messages on failure.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
		return false
	}
	return true
}

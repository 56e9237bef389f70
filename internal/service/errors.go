package service

import (
	"errors"
	"math"
	"time"

	"sinedi/internal/repository"
)

var (
	ErrNotFound            = repository.ErrNotFound
	ErrValidation          = errors.New("invalid input")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("job is not in a state that allows this action")
	ErrAlreadyClaimed      = errors.New("job already taken by another tutor")
	ErrTooManyActiveJobs   = errors.New("active job limit reached")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrChatLocked          = errors.New("chat is closed for finished jobs")
	ErrNotParticipant      = errors.New("not a participant of this job")
	ErrAlreadyReviewed     = errors.New("job already reviewed")
	ErrRatingRequired      = errors.New("rating must be between 1 and 5 stars")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrUploadUnavailable   = errors.New("media upload is not configured")
)

// timestamp renders t the way createdAt fields are stored (ISO-8601, UTC, millis).
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

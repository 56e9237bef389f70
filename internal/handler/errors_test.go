package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"sinedi/internal/auth"
	"sinedi/internal/service"
	"sinedi/internal/store"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: title is required", service.ErrValidation), http.StatusBadRequest},
		{service.ErrRatingRequired, http.StatusBadRequest},
		{service.ErrInsufficientBalance, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrNotParticipant, http.StatusForbidden},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrAlreadyClaimed, http.StatusConflict},
		{service.ErrTooManyActiveJobs, http.StatusConflict},
		{service.ErrChatLocked, http.StatusConflict},
		{service.ErrAlreadyReviewed, http.StatusConflict},
		{fmt.Errorf("claim: %w", store.ErrConflict), http.StatusConflict},
		{service.ErrUploadUnavailable, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, errors.New("dial tcp 10.0.0.1: refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestBindJSON_ReportsFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":0}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req service.WithdrawInput
	assert.False(t, bindJSON(c, &req))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

package handler

import (
	"net/http"

	"sinedi/internal/models"
	"sinedi/internal/service"
	"sinedi/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func authResponse(u *models.User, t *service.Tokens) gin.H {
	return gin.H{
		"user":         u.Public(),
		"accessToken":  t.AccessToken,
		"refreshToken": t.RefreshToken,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	u, tokens, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.WithField("user_id", u.ID).Infof("[auth] registered %s as %s", u.Username, u.Role)
	c.JSON(http.StatusCreated, authResponse(u, tokens))
}

// Login signs in by username. Unknown names without a password on record
// become new accounts of the requested role.
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginInput
	if !bindJSON(c, &req) {
		return
	}
	u, tokens, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse(u, tokens))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	tokens, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

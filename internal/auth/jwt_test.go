package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sinedi/config"
)

func testJWT() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "sinedi-test",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWT()
	tok, err := GenerateAccessToken(cfg, "u1", "budi", "tutor")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "budi", claims.Username)
	assert.Equal(t, "tutor", claims.Role)
}

func TestAccessTokenRejections(t *testing.T) {
	cfg := testJWT()
	refresh, err := GenerateRefreshToken(cfg, "u1")
	require.NoError(t, err)

	expiredCfg := testJWT()
	expiredCfg.AccessExpiry = -time.Minute
	expired, err := GenerateAccessToken(expiredCfg, "u1", "budi", "tutor")
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":       "not-a-token",
		"refresh token": refresh,
		"expired":       expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(cfg, tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRefreshToken(t *testing.T) {
	cfg := testJWT()
	tok, err := GenerateRefreshToken(cfg, "u9")
	require.NoError(t, err)

	id, err := ParseRefreshToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, "u9", id)

	access, _ := GenerateAccessToken(cfg, "u9", "x", "student")
	_, err = ParseRefreshToken(cfg, access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

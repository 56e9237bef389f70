package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sinedi/config"
	"sinedi/internal/auth"
	"sinedi/internal/domain"
	"sinedi/internal/models"
)

func newAuthService(f *fixture) *AuthService {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "a",
			RefreshSecret: "r",
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Hour,
			Issuer:        "sinedi-test",
		},
		Wallet: config.WalletConfig{StudentOpeningBalance: 750000, TutorOpeningBalance: 2500000},
		Admin:  config.AdminConfig{Username: "admin", Password: "rahasia123", Name: "Admin"},
	}
	return NewAuthService(cfg, f.users)
}

func TestAuth_LoginCreatesUnknownUser(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)

	u, tokens, err := svc.Login(f.ctx, LoginInput{Username: "Nedi Suryadi", Role: domain.RoleTutor})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Nedi Suryadi", u.Name)
	assert.Equal(t, domain.RoleTutor, u.Role)
	assert.Equal(t, int64(2500000), u.Wallet)
	assert.Equal(t, int64(2500000), u.OpeningBalance)
	require.NotNil(t, u.Availability)
	assert.Equal(t, []string{"Senin", "Rabu", "Jumat"}, u.Availability.Days)
	assert.Equal(t, "09:00", u.Availability.TimeStart)
	assert.Equal(t, "17:00", u.Availability.TimeEnd)

	claims, err := auth.ParseAccessToken(&svc.cfg.JWT, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	again, _, err := svc.Login(f.ctx, LoginInput{Username: "Nedi Suryadi", Role: domain.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, domain.RoleTutor, again.Role)

	student, _, err := svc.Login(f.ctx, LoginInput{Username: "Budi"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, student.Role)
	assert.Equal(t, int64(750000), student.Wallet)
}

func TestAuth_RegisterAndPasswordLogin(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)

	u, _, err := svc.Register(f.ctx, RegisterInput{Name: "Siti Aminah", Username: "Siti", Password: "secret1", Role: domain.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "siti", u.Username)
	assert.NotEmpty(t, u.PasswordHash)

	_, _, err = svc.Register(f.ctx, RegisterInput{Name: "Other", Username: "siti", Password: "secret2", Role: domain.RoleTutor})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, _, err = svc.Register(f.ctx, RegisterInput{Name: "Root", Username: "root", Password: "secret2", Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Login(f.ctx, LoginInput{Username: "siti", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, tokens, err := svc.Login(f.ctx, LoginInput{Username: "Siti", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	refreshed, err := svc.RefreshToken(f.ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.RefreshToken(f.ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuth_SeedAdminOnce(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)

	require.NoError(t, svc.SeedAdmin(f.ctx))
	require.NoError(t, svc.SeedAdmin(f.ctx))

	admins, err := f.users.ListByRole(f.ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)

	u, _, err := svc.Login(f.ctx, LoginInput{Username: "admin", Password: "rahasia123"})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
}

func TestProfile_UpdateMerges(t *testing.T) {
	f := newFixture(t)
	profiles := NewProfileService(f.users)
	tutor := f.user(t, "budi", domain.RoleTutor, 100)
	require.NoError(t, f.users.Update(f.ctx, tutor.ID, map[string]interface{}{
		"availability": models.Availability{Days: []string{"Senin"}, TimeStart: "09:00", TimeEnd: "17:00"},
		"tutorProfile": models.TutorProfile{Price: 100000, Skill: "Matematika"},
	}))

	major := "Teknik Informatika"
	u, err := profiles.Update(f.ctx, tutor.ID, ProfileUpdate{
		Major:        &major,
		Availability: &models.Availability{TimeEnd: "20:00"},
		TutorProfile: &models.TutorProfile{Bio: "Lulusan ITB"},
	})
	require.NoError(t, err)
	assert.Equal(t, major, u.Major)
	assert.Equal(t, int64(100), u.Wallet)
	assert.Equal(t, &models.Availability{Days: []string{"Senin"}, TimeStart: "09:00", TimeEnd: "20:00"}, u.Availability)
	assert.Equal(t, int64(100000), u.TutorProfile.Price)
	assert.Equal(t, "Matematika", u.TutorProfile.Skill)
	assert.Equal(t, "Lulusan ITB", u.TutorProfile.Bio)

	_, err = profiles.Update(f.ctx, tutor.ID, ProfileUpdate{Availability: &models.Availability{Days: []string{"Funday"}}})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = profiles.Update(f.ctx, tutor.ID, ProfileUpdate{Availability: &models.Availability{TimeStart: "21:00"}})
	assert.ErrorIs(t, err, ErrValidation)

	student := f.user(t, "siti", domain.RoleStudent, 0)
	_, err = profiles.Update(f.ctx, student.ID, ProfileUpdate{TutorProfile: &models.TutorProfile{Bio: "x"}})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProfile_ListTutors(t *testing.T) {
	f := newFixture(t)
	profiles := NewProfileService(f.users)
	a := f.user(t, "andi", domain.RoleTutor, 500)
	b := f.user(t, "budi", domain.RoleTutor, 500)
	f.user(t, "siti", domain.RoleStudent, 0)
	require.NoError(t, f.users.Update(f.ctx, a.ID, map[string]interface{}{"rating": 4.2, "subjects": []string{"Fisika"}}))
	require.NoError(t, f.users.Update(f.ctx, b.ID, map[string]interface{}{"rating": 4.9, "fcmToken": "tok"}))

	list, err := profiles.ListTutors(f.ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Empty(t, list[0].FCMToken)
	assert.Zero(t, list[0].Wallet)

	list, err = profiles.ListTutors(f.ctx, "fisika")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

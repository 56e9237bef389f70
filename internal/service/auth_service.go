package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sinedi/config"
	"sinedi/internal/auth"
	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/pkg/logger"
)

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
	now      func() time.Time
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, now: time.Now}
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=student tutor"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
	Role     string `json:"role" binding:"omitempty,oneof=student tutor"`
}

// defaultAvailability is given to every new account.
func defaultAvailability() *models.Availability {
	return &models.Availability{Days: []string{"Senin", "Rabu", "Jumat"}, TimeStart: "09:00", TimeEnd: "17:00"}
}

func (s *AuthService) newUser(name, username, role string) *models.User {
	opening := s.cfg.Wallet.StudentOpeningBalance
	if role == domain.RoleTutor {
		opening = s.cfg.Wallet.TutorOpeningBalance
	}
	return &models.User{
		Name:           name,
		Username:       username,
		Role:           role,
		Wallet:         opening,
		OpeningBalance: opening,
		Availability:   defaultAvailability(),
		CreatedAt:      timestamp(s.now()),
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, *Tokens, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if !domain.ValidRole(in.Role) || in.Role == domain.RoleAdmin {
		return nil, nil, fmt.Errorf("%w: role must be student or tutor", ErrValidation)
	}
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil, nil, ErrUsernameTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	u := s.newUser(strings.TrimSpace(in.Name), username, in.Role)
	u.PasswordHash = string(hash)
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, nil, err
	}
	logger.WithField("user_id", u.ID).Infof("[auth] registered %s as %s", username, u.Role)
	tokens, err := s.issue(u)
	return u, tokens, err
}

// Login signs in by username. Accounts with a password must present it;
// legacy accounts are found by display name, and an unknown name creates a
// fresh account with the requested role.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, *Tokens, error) {
	name := strings.TrimSpace(in.Username)
	u, err := s.userRepo.GetByUsername(ctx, strings.ToLower(name))
	if errors.Is(err, repository.ErrNotFound) {
		u, err = s.userRepo.GetByName(ctx, name)
	}
	switch {
	case err == nil:
		if u.PasswordHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
				return nil, nil, ErrInvalidCredentials
			}
		}
	case errors.Is(err, repository.ErrNotFound):
		role := in.Role
		if role == "" {
			role = domain.RoleStudent
		}
		if role != domain.RoleStudent && role != domain.RoleTutor {
			return nil, nil, fmt.Errorf("%w: role must be student or tutor", ErrValidation)
		}
		u = s.newUser(name, "", role)
		if err := s.userRepo.Create(ctx, u); err != nil {
			return nil, nil, err
		}
		logger.WithField("user_id", u.ID).Infof("[auth] created %s on first login", name)
	default:
		return nil, nil, err
	}
	tokens, err := s.issue(u)
	return u, tokens, err
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return s.issue(u)
}

// SeedAdmin creates the configured admin account when it does not exist yet.
// Without ADMIN_PASSWORD nothing is seeded.
func (s *AuthService) SeedAdmin(ctx context.Context) error {
	a := s.cfg.Admin
	if a.Password == "" {
		return nil
	}
	_, err := s.userRepo.GetByUsername(ctx, a.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := &models.User{
		Name:         a.Name,
		Username:     a.Username,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    timestamp(s.now()),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return err
	}
	logger.Infof("[auth] seeded admin %s", a.Username)
	return nil
}

func (s *AuthService) issue(u *models.User) (*Tokens, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Username, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

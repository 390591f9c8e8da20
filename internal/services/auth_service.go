package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories"
	"hatchery_backend/pkg/utils"
)

// AuthResponse DTO
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

type AuthService interface {
	// Register bootstraps the first account on an empty system as Admin. Once
	// any user exists it returns ErrRegistrationClosed.
	Register(ctx context.Context, req models.RegistrationPayload) (*models.User, error)
	// CreateUser is the admin path for every later account. Role defaults to Staff.
	CreateUser(ctx context.Context, req models.RegistrationPayload) (*models.User, error)
	Login(ctx context.Context, req models.Credentials) (*AuthResponse, error)
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
}

type authService struct {
	authRepo repositories.AuthRepository
	tx       repositories.Transactor
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(authRepo repositories.AuthRepository, tx repositories.Transactor) AuthService {
	return &authService{authRepo: authRepo, tx: tx}
}

func (s *authService) Register(ctx context.Context, req models.RegistrationPayload) (*models.User, error) {
	return s.createUser(ctx, req, func(count int) (string, error) {
		if count > 0 {
			return "", ErrRegistrationClosed
		}
		return models.RoleAdmin, nil
	})
}

func (s *authService) CreateUser(ctx context.Context, req models.RegistrationPayload) (*models.User, error) {
	role := models.RoleStaff
	if r := utils.TrimmedOrNil(req.Role); r != nil {
		role = *r
	}
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleStaff:
	default:
		return nil, validationErrorf("role must be Admin, Manager or Staff")
	}
	return s.createUser(ctx, req, func(int) (string, error) { return role, nil })
}

// createUser hashes the password and inserts the user. roleFor sees the user
// count inside the transaction, so two first registrations cannot both become Admin.
func (s *authService) createUser(ctx context.Context, req models.RegistrationPayload, roleFor func(count int) (string, error)) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, validationErrorf("username is required")
	}
	if len(req.Password) < 8 {
		return nil, validationErrorf("password must be at least 8 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, FullName: utils.TrimmedOrNil(req.FullName)}
	err = s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		count, err := s.authRepo.CountUsers(ctx, tx)
		if err != nil {
			return err
		}
		if user.Role, err = roleFor(count); err != nil {
			return err
		}
		_, err = s.authRepo.CreateUser(ctx, tx, user, string(hashed))
		return err
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	utils.LogInfo("User registered", map[string]interface{}{"user_id": user.ID, "username": user.Username, "role": user.Role})
	return user, nil
}

func (s *authService) Login(ctx context.Context, req models.Credentials) (*AuthResponse, error) {
	user, hashed, err := s.authRepo.FindUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, expiresAt, err := utils.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (s *authService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.authRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return user, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/taskboard/internal/domain"
	"github.com/yourorg/taskboard/internal/repository"
	"github.com/yourorg/taskboard/internal/security/auth"
	"github.com/yourorg/taskboard/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token resolution
type AuthService struct {
	userRepo     domain.UserRepository
	tokens       repository.TokenRepository
	tokenManager *auth.TokenManager
	tokenTTL     time.Duration
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokens repository.TokenRepository,
	tokenManager *auth.TokenManager,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo:     userRepo,
		tokens:       tokens,
		tokenManager: tokenManager,
		tokenTTL:     tokenTTL,
		logger:       logger,
	}
}

// RegisterInput is the registration payload schema
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginInput is the login payload schema
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a new user account. The returned user never carries the
// password hash into responses; the struct strips it at serialization.
func (s *AuthService) Register(input RegisterInput) (*domain.User, error) {
	if verr := validation.Check(input); verr != nil {
		return nil, verr
	}

	if existing, err := s.userRepo.GetByEmail(input.Email); err == nil && existing != nil {
		return nil, domain.NewValidationError("email", "The email has already been taken.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password produce the same error so account existence never leaks.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (string, error) {
	if verr := validation.Check(input); verr != nil {
		return "", verr
	}

	user, err := s.userRepo.GetByEmail(input.Email)
	if err != nil {
		s.logger.Info("login attempt with unknown email", slog.String("email", input.Email))
		return "", domain.ErrInvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", input.Email))
		return "", domain.ErrInvalidCredentials()
	}

	token, jti, err := s.tokenManager.Generate(user.ID, user.Email, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to generate token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return "", errors.New("failed to generate token")
	}

	if err := s.tokens.Save(ctx, jti, user.ID, s.tokenTTL); err != nil {
		return "", fmt.Errorf("failed to record token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return token, nil
}

// ResolveToken maps a presented bearer token to its user. The token must
// validate cryptographically and still be live in the token store.
func (s *AuthService) ResolveToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := s.tokenManager.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	live, err := s.tokens.IsLive(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if !live {
		return nil, errors.New("token revoked or expired")
	}

	return s.userRepo.GetByID(claims.UserID)
}

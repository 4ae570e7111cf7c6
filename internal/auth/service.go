package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/asset-attestation/internal/core/keystore"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	// GetCredentials returns nil, nil when no user has the email.
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
}

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	revoked        *keystore.Store[time.Time]
	bcryptCost     int
	logger         *slog.Logger
}

// NewService creates a new auth service. Revoked token ids live in the given store
// until the token would have expired anyway.
func NewService(userRepo UserRepository, tokenGen TokenGenerator, revoked *keystore.Store[time.Time], bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		revoked:        revoked,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.userRepo.GetCredentials(ctx, coreUser.NormalizeEmail(dto.Email))
	if err != nil {
		return AuthTokens{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil || creds.PasswordHash == "" {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed: password mismatch", "user_id", creds.UserID)
		return AuthTokens{}, ErrInvalidCredentials
	}

	u := &User{ID: creds.UserID, Email: creds.Email, Role: coreUser.MustRole(creds.Role)}
	tokens, err := s.issue(u)
	if err != nil {
		return AuthTokens{}, err
	}

	s.logger.Info("user logged in", "user_id", u.ID, "role", u.Role)
	return tokens, nil
}

// RefreshTokens validates refresh token and returns new tokens. The role is reloaded
// so promotions since the last login take effect.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return AuthTokens{}, err
	}

	userID, err := claims.UserIDInt()
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	u, err := s.userRepo.GetUser(ctx, userID)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	s.revoke(claims)
	return s.issue(u)
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAccess)
}

// Logout revokes the token until its natural expiry.
func (s *Service) Logout(tokenString string) error {
	claims, err := s.validate(tokenString, TokenTypeAccess)
	if err != nil {
		return err
	}
	s.revoke(claims)
	s.logger.Info("user logged out", "user_id", claims.UserID)
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.userRepo.GetUser(ctx, userID)
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SweepRevoked drops revocations whose tokens have expired.
func (s *Service) SweepRevoked() int {
	return s.revoked.Sweep()
}

func (s *Service) issue(u *User) (AuthTokens, error) {
	accessToken, expiresAt, err := s.tokenGenerator.GenerateAccessToken(u)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) validate(tokenString, tokenType string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString, tokenType)
	if err != nil {
		return nil, err
	}
	if s.revoked.Has(claims.ID) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) revoke(claims *Claims) {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	s.revoked.Put(claims.ID, claims.ExpiresAt.Time, ttl)
}

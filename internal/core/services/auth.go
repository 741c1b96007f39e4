package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// authService implements the AuthService interface.
// Tokens are stateless: validation never touches storage, so a token stays
// valid until its expiry regardless of server restarts.
type authService struct {
	userStore   driven.UserStore
	authAdapter driven.AuthAdapter
	tokenTTL    time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userStore driven.UserStore,
	authAdapter driven.AuthAdapter,
	tokenTTL time.Duration,
) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 23 * time.Hour
	}
	return &authService{
		userStore:   userStore,
		authAdapter: authAdapter,
		tokenTTL:    tokenTTL,
	}
}

// Register creates a new account
func (s *authService) Register(ctx context.Context, req driving.RegisterRequest) (*domain.UserSummary, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if !usernameRe.MatchString(username) {
		return nil, domain.ErrInvalidInput
	}
	if !emailRe.MatchString(email) {
		return nil, domain.ErrInvalidInput
	}
	if len(req.Password) < 8 {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.userStore.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrAlreadyExists
	}
	if _, err := s.userStore.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrAlreadyExists
	}

	hash, err := s.authAdapter.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           domain.GenerateID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userStore.Save(ctx, user); err != nil {
		return nil, err
	}

	return user.ToSummary(), nil
}

// Login validates credentials and issues an access token.
// Every failure path returns ErrInvalidCredentials so responses cannot be
// used to probe which usernames exist.
func (s *authService) Login(ctx context.Context, req driving.LoginRequest) (*domain.LoginResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userStore.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.Active {
		return nil, domain.ErrInvalidCredentials
	}

	if !s.authAdapter.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &domain.TokenClaims{
		UserID:    user.ID,
		Username:  user.Username,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}

	token, err := s.authAdapter.GenerateToken(claims)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		Username:    user.Username,
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken verifies a token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil, err
	}

	if time.Now().After(claims.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}

	return &domain.AuthContext{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

// GetUser returns the account summary for an authenticated user
func (s *authService) GetUser(ctx context.Context, userID string) (*domain.UserSummary, error) {
	user, err := s.userStore.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToSummary(), nil
}

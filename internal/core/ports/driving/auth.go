package driving

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// RegisterRequest represents a request to create an account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthService handles registration and authentication
type AuthService interface {
	// Register creates a new account
	Register(ctx context.Context, req RegisterRequest) (*domain.UserSummary, error)

	// Login validates credentials and issues an access token
	Login(ctx context.Context, req LoginRequest) (*domain.LoginResult, error)

	// ValidateToken verifies a token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// GetUser returns the account summary for an authenticated user
	GetUser(ctx context.Context, userID string) (*domain.UserSummary, error)
}

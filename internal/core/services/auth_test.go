package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

func newTestAuthService() (*mocks.MockUserStore, *mocks.MockAuthAdapter, *authService) {
	userStore := mocks.NewMockUserStore()
	authAdapter := mocks.NewMockAuthAdapter()
	svc := NewAuthService(userStore, authAdapter, 23*time.Hour).(*authService)
	return userStore, authAdapter, svc
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name    string
		req     driving.RegisterRequest
		wantErr error
	}{
		{
			name:    "valid registration",
			req:     driving.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "username too short",
			req:     driving.RegisterRequest{Username: "al", Email: "alice@example.com", Password: "password123"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "username with spaces",
			req:     driving.RegisterRequest{Username: "alice smith", Email: "alice@example.com", Password: "password123"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "invalid email",
			req:     driving.RegisterRequest{Username: "alice", Email: "not-an-email", Password: "password123"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "password too short",
			req:     driving.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "short"},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, svc := newTestAuthService()
			summary, err := svc.Register(context.Background(), tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if summary.Username != tt.req.Username {
				t.Errorf("expected username %s, got %s", tt.req.Username, summary.Username)
			}
			if summary.ID == "" {
				t.Error("expected generated user ID")
			}
		})
	}
}

func TestAuthService_Register_Duplicates(t *testing.T) {
	_, _, svc := newTestAuthService()

	req := driving.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	if _, err := svc.Register(context.Background(), req); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate username: expected ErrAlreadyExists, got %v", err)
	}

	req2 := driving.RegisterRequest{Username: "alice2", Email: "alice@example.com", Password: "password123"}
	if _, err := svc.Register(context.Background(), req2); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate email: expected ErrAlreadyExists, got %v", err)
	}
}

func TestAuthService_Register_NeverStoresPlaintext(t *testing.T) {
	userStore, _, svc := newTestAuthService()

	req := driving.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	user, err := userStore.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("user not saved: %v", err)
	}
	if user.PasswordHash == req.Password {
		t.Error("password stored in plaintext")
	}
}

func TestAuthService_Login(t *testing.T) {
	userStore, _, svc := newTestAuthService()

	user := &domain.User{
		ID:           "user-123",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed:password123", // Mock hasher prefixes plaintext
		Active:       true,
		CreatedAt:    time.Now(),
	}
	_ = userStore.Save(context.Background(), user)

	tests := []struct {
		name    string
		req     driving.LoginRequest
		wantErr error
	}{
		{
			name:    "valid credentials",
			req:     driving.LoginRequest{Username: "alice", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "wrong password",
			req:     driving.LoginRequest{Username: "alice", Password: "wrongpassword"},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:    "unknown user",
			req:     driving.LoginRequest{Username: "bob", Password: "password123"},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:    "empty password",
			req:     driving.LoginRequest{Username: "alice", Password: ""},
			wantErr: domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Login(context.Background(), tt.req)

			if tt.wantErr != nil {
				// Identical sentinel for every failure mode, so the API
				// cannot leak which usernames exist
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.AccessToken == "" {
				t.Error("expected access token")
			}
			if result.TokenType != "bearer" {
				t.Errorf("expected token_type bearer, got %s", result.TokenType)
			}
			if time.Until(result.ExpiresAt) > 23*time.Hour {
				t.Error("token expiry exceeds configured TTL")
			}
		})
	}
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	userStore, _, svc := newTestAuthService()

	user := &domain.User{
		ID:           "user-123",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed:password123",
		Active:       false,
	}
	_ = userStore.Save(context.Background(), user)

	_, err := svc.Login(context.Background(), driving.LoginRequest{Username: "alice", Password: "password123"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	userStore, _, svc := newTestAuthService()

	user := &domain.User{
		ID:           "user-123",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed:password123",
		Active:       true,
	}
	_ = userStore.Save(context.Background(), user)

	result, err := svc.Login(context.Background(), driving.LoginRequest{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	authCtx, err := svc.ValidateToken(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if authCtx.UserID != "user-123" {
		t.Errorf("expected user-123, got %s", authCtx.UserID)
	}
	if authCtx.Username != "alice" {
		t.Errorf("expected alice, got %s", authCtx.Username)
	}

	if _, err := svc.ValidateToken(context.Background(), "garbage"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), ""); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for empty token, got %v", err)
	}
}

func TestAuthService_ValidateToken_Expired(t *testing.T) {
	userStore, authAdapter, svc := newTestAuthService()
	authAdapter.TTL = -time.Minute // Parsed claims come back already expired

	user := &domain.User{
		ID:           "user-123",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed:password123",
		Active:       true,
	}
	_ = userStore.Save(context.Background(), user)

	result, err := svc.Login(context.Background(), driving.LoginRequest{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := svc.ValidateToken(context.Background(), result.AccessToken); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthService_GetUser(t *testing.T) {
	userStore, _, svc := newTestAuthService()

	user := &domain.User{
		ID:           "user-123",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed:password123",
		Active:       true,
	}
	_ = userStore.Save(context.Background(), user)

	summary, err := svc.GetUser(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if summary.Username != "alice" {
		t.Errorf("expected alice, got %s", summary.Username)
	}

	if _, err := svc.GetUser(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

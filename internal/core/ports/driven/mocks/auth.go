package mocks

import (
	"strings"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// MockAuthAdapter is a fake AuthAdapter with trivially reversible crypto
type MockAuthAdapter struct {
	// TTL is applied to generated token claims when ParseToken checks expiry
	TTL time.Duration
}

// NewMockAuthAdapter creates a new MockAuthAdapter
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{TTL: time.Hour}
}

func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return hash == "hashed:"+password
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	return "token:" + claims.UserID + ":" + claims.Username, nil
}

func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != "token" {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now()
	return &domain.TokenClaims{
		UserID:    parts[1],
		Username:  parts[2],
		IssuedAt:  now,
		ExpiresAt: now.Add(m.TTL),
	}, nil
}

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

func TestHashPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4) // Low cost for faster tests

	hash, err := adapter.HashPassword("mypassword")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if hash == "" || hash == "mypassword" {
		t.Error("expected a real hash")
	}
	if len(hash) < 60 {
		t.Error("expected bcrypt hash to be at least 60 characters")
	}
}

func TestHashPassword_DifferentHashesForSamePassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4)

	hash1, _ := adapter.HashPassword("password123")
	hash2, _ := adapter.HashPassword("password123")
	if hash1 == hash2 {
		t.Error("expected different hashes for same password (due to salt)")
	}
}

func TestVerifyPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4)

	hash, _ := adapter.HashPassword("correct-password")

	if !adapter.VerifyPassword("correct-password", hash) {
		t.Error("expected correct password to verify")
	}
	if adapter.VerifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail verification")
	}
	if adapter.VerifyPassword("correct-password", "not-a-hash") {
		t.Error("expected garbage hash to fail verification")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	adapter := NewAdapter("test-secret")

	now := time.Now().Truncate(time.Second)
	claims := &domain.TokenClaims{
		UserID:    "user-123",
		Username:  "alice",
		IssuedAt:  now,
		ExpiresAt: now.Add(23 * time.Hour),
	}

	token, err := adapter.GenerateToken(claims)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	parsed, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if parsed.UserID != "user-123" {
		t.Errorf("expected user-123, got %s", parsed.UserID)
	}
	if parsed.Username != "alice" {
		t.Errorf("expected alice, got %s", parsed.Username)
	}
	if !parsed.ExpiresAt.Equal(claims.ExpiresAt) {
		t.Errorf("expected expiry %v, got %v", claims.ExpiresAt, parsed.ExpiresAt)
	}
}

func TestParseToken_Expired(t *testing.T) {
	adapter := NewAdapter("test-secret")

	claims := &domain.TokenClaims{
		UserID:    "user-123",
		Username:  "alice",
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	token, err := adapter.GenerateToken(claims)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	adapter := NewAdapter("secret-one")
	other := NewAdapter("secret-two")

	claims := &domain.TokenClaims{
		UserID:    "user-123",
		Username:  "alice",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	token, _ := adapter.GenerateToken(claims)

	if _, err := other.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for foreign signature, got %v", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	adapter := NewAdapter("test-secret")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := adapter.ParseToken(token); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("ParseToken(%q): expected ErrTokenInvalid, got %v", token, err)
		}
	}
}

package driven

import "github.com/custodia-labs/ragcore/internal/core/domain"

// AuthAdapter handles authentication cryptographic operations.
// Tokens are stateless: everything needed to verify a request is in the
// token itself, so there is no session storage behind this port.
type AuthAdapter interface {
	// Password operations
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	// Token operations
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}

package driving

import (
	"context"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

// QueryService answers questions over the caller's indexed corpus
type QueryService interface {
	// Query embeds the question, retrieves from both indexes, fuses the
	// rankings, and generates a cited answer. topK <= 0 uses the
	// configured default.
	Query(ctx context.Context, scope domain.Scope, question string, topK int) (*domain.QueryResult, error)
}

package driven

import "context"

// CompletionService generates grounded answers from retrieved passages
type CompletionService interface {
	// GenerateAnswer produces an answer to the question using only the
	// supplied passages as context
	GenerateAnswer(ctx context.Context, question string, passages []string) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the completion service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the completion service
	Close() error
}

package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials indicates a wrong username/password combination.
	// Callers must not reveal which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrEmptyInput indicates the parsed document contains no extractable text
	ErrEmptyInput = errors.New("no extractable text")

	// ErrParseFailure indicates the uploaded file could not be parsed
	ErrParseFailure = errors.New("parse failure")

	// ErrFileTooLarge indicates the upload exceeds the configured size cap
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmbeddingUnavailable indicates a transient embedding provider
	// failure (timeout, 5xx). Retryable within the batcher's attempt bound.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrEmbeddingRejected indicates the embedding provider rejected the
	// request outright (unknown model, malformed input). Never retried.
	ErrEmbeddingRejected = errors.New("embedding request rejected")

	// ErrStoreUnavailable indicates an index backend could not be reached
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConsistencyViolation indicates the two indexes disagree about the
	// owner of the same chunk. Surfaced and logged, never silently repaired.
	ErrConsistencyViolation = errors.New("cross-store consistency violation")

	// ErrCompletionUnavailable indicates the completion provider could not
	// be reached
	ErrCompletionUnavailable = errors.New("completion provider unavailable")
)

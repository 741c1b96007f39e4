package domain

import "time"

// QueryState tracks a hybrid query through its lifecycle. Transitions are
// linear; Failed is terminal and reachable from any non-terminal state.
type QueryState string

const (
	QueryStateReceived   QueryState = "received"
	QueryStateEmbedding  QueryState = "embedding"
	QueryStateRetrieving QueryState = "retrieving"
	QueryStateFusing     QueryState = "fusing"
	QueryStateCompleted  QueryState = "completed"
	QueryStateFailed     QueryState = "failed"
)

// Backend identifies which index produced a match
type Backend string

const (
	BackendSemantic Backend = "semantic"
	BackendLexical  Backend = "lexical"
)

// VectorMatch is one hit from the semantic index, ranked by cosine
// similarity. Content may be empty when the index stores vectors only.
type VectorMatch struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	UserID     string  `json:"user_id"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float32 `json:"similarity"`
}

// KeywordMatch is one hit from the lexical index, ranked by BM25
type KeywordMatch struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	UserID     string  `json:"user_id"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// FusedResult is a deduplicated chunk after rank fusion, carrying which
// backends contributed to it
type FusedResult struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Score      float64   `json:"score"`
	Backends   []Backend `json:"backends"`
}

// FromBackend reports whether b contributed to this result
func (r *FusedResult) FromBackend(b Backend) bool {
	for _, have := range r.Backends {
		if have == b {
			return true
		}
	}
	return false
}

// Citation points an answer back at a retrieved chunk
type Citation struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
}

// QueryResult is the final output of a hybrid query
type QueryResult struct {
	Answer    string        `json:"answer"`
	Citations []Citation    `json:"sources"`
	State     QueryState    `json:"-"`
	Took      time.Duration `json:"-"`
}

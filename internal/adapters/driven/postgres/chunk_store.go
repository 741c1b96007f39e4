package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL. It holds the
// raw chunk text used to hydrate semantic-only search hits; embeddings
// live in the vector index, not here.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// SaveBatch saves multiple chunks in a transaction
func (s *ChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, document_id, user_id, source, content, chunk_index, page_start, page_end)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				chunk_index = EXCLUDED.chunk_index,
				page_start = EXCLUDED.page_start,
				page_end = EXCLUDED.page_end
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range chunks {
			if _, err := stmt.ExecContext(ctx,
				c.ID, c.DocumentID, c.UserID, c.Source, c.Content,
				c.Index, c.PageStart, c.PageEnd,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

const chunkColumns = `id, document_id, user_id, source, content, chunk_index, page_start, page_end`

func scanChunk(row interface{ Scan(...any) error }) (*domain.Chunk, error) {
	var c domain.Chunk
	err := row.Scan(
		&c.ID,
		&c.DocumentID,
		&c.UserID,
		&c.Source,
		&c.Content,
		&c.Index,
		&c.PageStart,
		&c.PageEnd,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByIDs retrieves the caller's chunks by ID. Missing IDs are omitted.
func (s *ChunkStore) GetByIDs(ctx context.Context, scope domain.Scope, ids []string) ([]*domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id = ANY($1) AND user_id = $2`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids), scope.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetByDocument retrieves all chunks for one of the caller's documents
func (s *ChunkStore) GetByDocument(ctx context.Context, scope domain.Scope, documentID string) ([]*domain.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE document_id = $1 AND user_id = $2 ORDER BY chunk_index`
	rows, err := s.db.QueryContext(ctx, query, documentID, scope.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteByDocument deletes all chunks for a document
func (s *ChunkStore) DeleteByDocument(ctx context.Context, scope domain.Scope, documentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = $1 AND user_id = $2`, documentID, scope.UserID)
	return err
}

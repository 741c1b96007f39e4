package postgres

import (
	"context"
	"database/sql"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL.
// Every read and delete carries the scope's user_id in the WHERE clause.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, user_id, source, mime_type, chunk_count, size_bytes, created_at, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			mime_type = EXCLUDED.mime_type,
			chunk_count = EXCLUDED.chunk_count,
			size_bytes = EXCLUDED.size_bytes,
			indexed_at = EXCLUDED.indexed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.Source,
		doc.MimeType,
		doc.ChunkCount,
		doc.SizeBytes,
		doc.CreatedAt,
		doc.IndexedAt,
	)
	return err
}

const documentColumns = `id, user_id, source, mime_type, chunk_count, size_bytes, created_at, indexed_at`

func scanDocument(row interface{ Scan(...any) error }) (*domain.Document, error) {
	var doc domain.Document
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Source,
		&doc.MimeType,
		&doc.ChunkCount,
		&doc.SizeBytes,
		&doc.CreatedAt,
		&doc.IndexedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Get retrieves one of the caller's documents by ID
func (s *DocumentStore) Get(ctx context.Context, scope domain.Scope, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND user_id = $2`
	return scanDocument(s.db.QueryRowContext(ctx, query, id, scope.UserID))
}

// GetBySource retrieves one of the caller's documents by source filename
func (s *DocumentStore) GetBySource(ctx context.Context, scope domain.Scope, source string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE source = $1 AND user_id = $2`
	return scanDocument(s.db.QueryRowContext(ctx, query, source, scope.UserID))
}

// List retrieves all of the caller's documents
func (s *DocumentStore) List(ctx context.Context, scope domain.Scope) ([]*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 ORDER BY source`

	rows, err := s.db.QueryContext(ctx, query, scope.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete deletes one of the caller's documents
func (s *DocumentStore) Delete(ctx context.Context, scope domain.Scope, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, scope.UserID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Stats aggregates chunk counts across the caller's documents
func (s *DocumentStore) Stats(ctx context.Context, scope domain.Scope) (*domain.CorpusStats, error) {
	query := `
		SELECT source, chunk_count
		FROM documents
		WHERE user_id = $1
		ORDER BY source
	`

	rows, err := s.db.QueryContext(ctx, query, scope.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.CorpusStats{}
	for rows.Next() {
		var src domain.SourceStats
		if err := rows.Scan(&src.Name, &src.Chunks); err != nil {
			return nil, err
		}
		stats.Sources = append(stats.Sources, src)
		stats.UniqueDocuments++
		stats.TotalChunks += src.Chunks
	}
	return stats, rows.Err()
}

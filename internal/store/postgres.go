package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore keeps both collections in Postgres and delegates similarity search to
// pgvector's cosine distance operator.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string, dimension int) (*PostgresStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx, dimension); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context, dimension int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_documents_file_id ON documents (file_id)`,
		`CREATE TABLE IF NOT EXISTS metadata (
			file_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) AddChunk(ctx context.Context, chunk DocumentChunk, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, file_id, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, chunk.ID, chunk.FileID, chunk.Index, chunk.Text, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, embedding []float32, topN int) ([]DocumentChunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_id, chunk_index, content
		FROM documents
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, pgvector.NewVector(embedding), topN)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	return collectChunks(rows)
}

func (s *PostgresStore) ChunksByFile(ctx context.Context, fileID string) ([]DocumentChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_id, chunk_index, content
		FROM documents
		WHERE file_id = $1
		ORDER BY chunk_index ASC
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query chunks for %s: %w", fileID, err)
	}
	return collectChunks(rows)
}

func collectChunks(rows pgx.Rows) ([]DocumentChunk, error) {
	defer rows.Close()
	results := make([]DocumentChunk, 0)
	for rows.Next() {
		var chunk DocumentChunk
		if err := rows.Scan(&chunk.ID, &chunk.FileID, &chunk.Index, &chunk.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		results = append(results, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *PostgresStore) HasFile(ctx context.Context, fileID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, "SELECT 1 FROM metadata WHERE file_id = $1", fileID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query metadata for %s: %w", fileID, err)
	}
	return true, nil
}

func (s *PostgresStore) AddFile(ctx context.Context, rec FileMetadataRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO metadata (file_id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_id) DO NOTHING
	`, rec.FileID, rec.Name, createdAt)
	if err != nil {
		return fmt.Errorf("insert metadata for %s: %w", rec.FileID, err)
	}
	return nil
}

func (s *PostgresStore) ListFiles(ctx context.Context) ([]FileMetadataRecord, error) {
	rows, err := s.pool.Query(ctx, "SELECT file_id, name, created_at FROM metadata ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	var records []FileMetadataRecord
	for rows.Next() {
		var rec FileMetadataRecord
		if err := rows.Scan(&rec.FileID, &rec.Name, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE documents, metadata"); err != nil {
		return fmt.Errorf("truncate collections: %w", err)
	}
	return nil
}

func firstLine(stmt string) string {
	for i, r := range stmt {
		if r == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}

var _ VectorStore = (*PostgresStore)(nil)

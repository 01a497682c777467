package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"gwi.com/drive-agent/internal/utils"
)

// SQLiteStore keeps both collections in one SQLite file. Similarity is computed in
// memory over the stored embeddings.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(dataSourceName string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY, -- {file_id}_{chunk_index}
        file_id TEXT NOT NULL,
        chunk_index INTEGER NOT NULL,
        content TEXT NOT NULL,
        embedding_json TEXT -- JSON array of float32
    );

    CREATE INDEX IF NOT EXISTS idx_documents_file_id ON documents (file_id);

    CREATE TABLE IF NOT EXISTS metadata (
        file_id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) AddChunk(ctx context.Context, chunk DocumentChunk, embedding []float32) error {
	embeddingBytes, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO documents (id, file_id, chunk_index, content, embedding_json) VALUES (?, ?, ?, ?, ?)",
		chunk.ID, chunk.FileID, chunk.Index, chunk.Text, string(embeddingBytes))
	if err != nil {
		return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, topN int) ([]DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, file_id, chunk_index, content, embedding_json FROM documents ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var (
		chunks  []DocumentChunk
		vectors [][]float32
	)
	for rows.Next() {
		var chunk DocumentChunk
		var embeddingJSON sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.FileID, &chunk.Index, &chunk.Text, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		var vec []float32
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			if err := json.Unmarshal([]byte(embeddingJSON.String), &vec); err != nil {
				s.logger.Warn("unreadable embedding, chunk excluded from search",
					zap.String("chunk_id", chunk.ID), zap.Error(err))
				continue
			}
		}
		chunks = append(chunks, chunk)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	ranked := utils.TopN(embedding, vectors, topN)
	results := make([]DocumentChunk, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, chunks[r.Pos])
	}
	return results, nil
}

func (s *SQLiteStore) ChunksByFile(ctx context.Context, fileID string) ([]DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, file_id, chunk_index, content FROM documents WHERE file_id = ? ORDER BY chunk_index ASC", fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks for %s: %w", fileID, err)
	}
	defer rows.Close()

	var chunks []DocumentChunk
	for rows.Next() {
		var chunk DocumentChunk
		if err := rows.Scan(&chunk.ID, &chunk.FileID, &chunk.Index, &chunk.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) HasFile(ctx context.Context, fileID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM metadata WHERE file_id = ?", fileID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check metadata for %s: %w", fileID, err)
	}
	return true, nil
}

func (s *SQLiteStore) AddFile(ctx context.Context, rec FileMetadataRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO metadata (file_id, name, created_at) VALUES (?, ?, ?)",
		rec.FileID, rec.Name, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert metadata for %s: %w", rec.FileID, err)
	}
	return nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context) ([]FileMetadataRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file_id, name, created_at FROM metadata ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	var records []FileMetadataRecord
	for rows.Next() {
		var rec FileMetadataRecord
		if err := rows.Scan(&rec.FileID, &rec.Name, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	for _, table := range []string{"documents", "metadata"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

var _ VectorStore = (*SQLiteStore)(nil)

package store

import (
	"context"
	"fmt"
	"time"
)

// DocumentChunk is one fixed-size slice of a file's text. Chunks are immutable.
type DocumentChunk struct {
	ID     string `json:"id"` // "{fileID}_{index}"
	FileID string `json:"file_id"`
	Index  int    `json:"index"`
	Text   string `json:"text"`
}

// FileMetadataRecord marks a remote file as fully ingested. Only its existence matters.
type FileMetadataRecord struct {
	FileID    string    `json:"file_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ChunkID builds the stable id of the index-th chunk of a file.
func ChunkID(fileID string, index int) string {
	return fmt.Sprintf("%s_%d", fileID, index)
}

// Documents is the chunk collection.
type Documents interface {
	// AddChunk stores a chunk and its embedding. Re-adding an existing id is a no-op.
	AddChunk(ctx context.Context, chunk DocumentChunk, embedding []float32) error
	// Query returns up to topN chunks, most similar to embedding first.
	Query(ctx context.Context, embedding []float32, topN int) ([]DocumentChunk, error)
	// ChunksByFile returns a file's chunks in index order.
	ChunksByFile(ctx context.Context, fileID string) ([]DocumentChunk, error)
}

// Metadata is the processed-file collection.
type Metadata interface {
	HasFile(ctx context.Context, fileID string) (bool, error)
	// AddFile writes the processed marker. Re-adding an existing id is a no-op.
	AddFile(ctx context.Context, rec FileMetadataRecord) error
	ListFiles(ctx context.Context) ([]FileMetadataRecord, error)
}

// VectorStore is a backend holding both collections.
type VectorStore interface {
	Documents
	Metadata
	// Reset deletes every chunk and every processed marker.
	Reset(ctx context.Context) error
	Close() error
}

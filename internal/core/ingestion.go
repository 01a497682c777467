package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"gwi.com/drive-agent/internal/chunker"
	"gwi.com/drive-agent/internal/extract"
	"gwi.com/drive-agent/internal/source"
	"gwi.com/drive-agent/internal/store"
)

type FileStatus string

const (
	StatusProcessed FileStatus = "processed"
	StatusSkipped   FileStatus = "skipped"
	StatusFailed    FileStatus = "failed"
)

// FileOutcome is the result of syncing one remote file.
type FileOutcome struct {
	FileID string     `json:"file_id"`
	Name   string     `json:"name"`
	Status FileStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
	Chunks int        `json:"chunks"`
}

// IngestionCoordinator copies new remote files into the vector store. A file's
// metadata record is written only after all of its chunks, so its presence means the
// file is fully indexed.
type IngestionCoordinator struct {
	source      source.Client
	docs        store.Documents
	meta        store.Metadata
	extractor   extract.Extractor
	embedder    Embedder
	downloadDir string
	chunkSize   int
	logger      *zap.Logger
}

type IngestionOptions struct {
	DownloadDir string
	ChunkSize   int
}

func NewIngestionCoordinator(
	src source.Client,
	vs store.VectorStore,
	extractor extract.Extractor,
	embedder Embedder,
	opts IngestionOptions,
	logger *zap.Logger,
) *IngestionCoordinator {
	if opts.DownloadDir == "" {
		opts.DownloadDir = os.TempDir()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionCoordinator{
		source:      src,
		docs:        vs,
		meta:        vs,
		extractor:   extractor,
		embedder:    embedder,
		downloadDir: opts.DownloadDir,
		chunkSize:   opts.ChunkSize,
		logger:      logger,
	}
}

// SyncAll ingests every remote file that has no processed marker yet. Per-file
// failures are reported in the outcomes and never stop the batch; the returned error
// is set only when listing fails or ctx is cancelled.
func (c *IngestionCoordinator) SyncAll(ctx context.Context) ([]FileOutcome, error) {
	start := time.Now()
	files, err := c.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote files: %w", err)
	}
	c.logger.Info("syncing remote files", zap.Int("files", len(files)))

	outcomes := make([]FileOutcome, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome := c.syncFile(ctx, f)
		c.logOutcome(outcome)
		outcomes = append(outcomes, outcome)
	}

	processed, skipped, failed := Summarize(outcomes)
	c.logger.Info("sync finished",
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
	return outcomes, nil
}

// Summarize counts outcomes by status.
func Summarize(outcomes []FileOutcome) (processed, skipped, failed int) {
	for _, o := range outcomes {
		switch o.Status {
		case StatusProcessed:
			processed++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return processed, skipped, failed
}

func (c *IngestionCoordinator) syncFile(ctx context.Context, f source.RemoteFile) FileOutcome {
	outcome := FileOutcome{FileID: f.ID, Name: f.Name}
	skip := func(reason string) FileOutcome {
		outcome.Status, outcome.Reason = StatusSkipped, reason
		return outcome
	}
	fail := func(err error) FileOutcome {
		outcome.Status, outcome.Reason = StatusFailed, err.Error()
		return outcome
	}

	processed, err := c.meta.HasFile(ctx, f.ID)
	if err != nil {
		return fail(err)
	}
	if processed {
		return skip("already processed")
	}

	if err := c.source.Get(ctx, f.ID); err != nil {
		return fail(fmt.Errorf("access check: %w", err))
	}

	path, err := c.download(ctx, f)
	if errors.Is(err, errNoExport) {
		return skip("unsupported file type")
	}
	if err != nil {
		return fail(fmt.Errorf("download: %w", err))
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.logger.Warn("failed to remove temp file", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	content, err := c.extractor.Extract(path)
	if errors.Is(err, extract.ErrUnsupported) {
		return skip("unsupported file type")
	}
	if err != nil {
		return fail(fmt.Errorf("extract text: %w", err))
	}

	chunks := chunker.Chunk(content, c.chunkSize)
	for i, text := range chunks {
		vec, err := c.embedder.Embed(ctx, text)
		if err != nil {
			return fail(fmt.Errorf("embed chunk %d: %w", i, err))
		}
		chunk := store.DocumentChunk{ID: store.ChunkID(f.ID, i), FileID: f.ID, Index: i, Text: text}
		if err := c.docs.AddChunk(ctx, chunk, vec); err != nil {
			return fail(err)
		}
	}

	if err := c.meta.AddFile(ctx, store.FileMetadataRecord{FileID: f.ID, Name: f.Name}); err != nil {
		return fail(err)
	}

	outcome.Status = StatusProcessed
	outcome.Chunks = len(chunks)
	return outcome
}

var errNoExport = errors.New("no export mapping for cloud-native type")

// download writes the file's content into the download directory and returns the
// local path. Cloud-native documents are exported and get the export extension.
func (c *IngestionCoordinator) download(ctx context.Context, f source.RemoteFile) (string, error) {
	name := f.Name
	var (
		body io.ReadCloser
		err  error
	)
	if source.IsCloudNative(f.MimeType) {
		export, ok := source.ExportFor(f.MimeType)
		if !ok {
			return "", errNoExport
		}
		body, err = c.source.ExportMedia(ctx, f.ID, export.MimeType)
		name += export.Extension
	} else {
		body, err = c.source.GetMedia(ctx, f.ID)
	}
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	out, err := os.CreateTemp(c.downloadDir, "ingest-*-"+safeFileName(name))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return out.Name(), nil
}

// safeFileName keeps the name (and so the extension) but drops anything that would
// escape the download directory or confuse the temp-file pattern.
func safeFileName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "*", "_", string(filepath.Separator), "_")
	name = r.Replace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

func (c *IngestionCoordinator) logOutcome(o FileOutcome) {
	fields := []zap.Field{zap.String("file_id", o.FileID), zap.String("name", o.Name)}
	switch o.Status {
	case StatusProcessed:
		c.logger.Info("processed new file", append(fields, zap.Int("chunks", o.Chunks))...)
	case StatusSkipped:
		c.logger.Info("skipping file", append(fields, zap.String("reason", o.Reason))...)
	case StatusFailed:
		c.logger.Warn("error processing file", append(fields, zap.String("reason", o.Reason))...)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gwi.com/drive-agent/internal/store"
)

type indexReader interface {
	store.Metadata
	store.Documents
}

const previewLen = 60

// printFiles writes one line per processed file and, with chunks set, one indented
// line per stored chunk.
func printFiles(ctx context.Context, w io.Writer, idx indexReader, chunks bool) error {
	files, err := idx.ListFiles(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.FileID, f.CreatedAt.Format(time.RFC3339), f.Name)
		if !chunks {
			continue
		}
		stored, err := idx.ChunksByFile(ctx, f.FileID)
		if err != nil {
			return fmt.Errorf("list chunks of %s: %w", f.FileID, err)
		}
		for _, c := range stored {
			fmt.Fprintf(w, "  %s\t%q\n", c.ID, preview(c.Text))
		}
	}
	return nil
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return text
}

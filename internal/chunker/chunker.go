// Package chunker splits extracted document text into fixed-size slices.
package chunker

// DefaultSize is the chunk length, in characters, used during ingestion.
const DefaultSize = 500

// Chunk slices text into contiguous, non-overlapping windows of size characters.
// The final window holds whatever remains. Characters are Unicode code points, so a
// multi-byte rune is never split across chunks.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

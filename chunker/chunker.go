// Package chunker splits text into overlapping character windows with
// byte offsets into the original input.
package chunker

import "strings"

// Chunk is one (start, end, text) triple produced by Split. start and end
// are byte offsets into the original input; text is the trimmed slice
// between them.
type Chunk struct {
	Start int
	End   int
	Text  string
}

// Config controls the chunking behaviour.
type Config struct {
	ChunkSize int // window length in bytes, must be > 0
	Overlap   int // overlap between consecutive windows, clamped to [0, ChunkSize-1]
}

// Split slides a window of length cfg.ChunkSize across text, advancing by
// ChunkSize-Overlap each step, trimming whitespace from each window and
// dropping windows that are empty after trimming. The windows cover the
// input exactly: the final window always ends at len(text).
func Split(text string, cfg Config) []Chunk {
	if cfg.ChunkSize <= 0 {
		panic("chunker: ChunkSize must be > 0")
	}
	overlap := cfg.Overlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap > cfg.ChunkSize-1 {
		overlap = cfg.ChunkSize - 1
	}

	n := len(text)
	var out []Chunk

	start := 0
	for start < n {
		end := start + cfg.ChunkSize
		if end > n {
			end = n
		}
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			// Re-anchor start/end to the trimmed slice's position within
			// the original window so offsets stay faithful to the source.
			lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
			out = append(out, Chunk{
				Start: start + lead,
				End:   start + lead + len(trimmed),
				Text:  trimmed,
			})
		}
		if end >= n {
			break
		}
		start = end - overlap
	}
	return out
}

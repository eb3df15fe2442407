package chunker

import (
	"fmt"
	"strings"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Window size in tokens.
	ChunkOverlap int // Tokens shared between consecutive windows.
	MinChunkSize int // Minimum rendered length (chars) to emit a chunk.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 100,
		MinChunkSize: 50,
	}
}

// Validate checks the window constraints.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in (0, %d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.MinChunkSize > c.ChunkSize {
		return fmt.Errorf("min chunk size %d exceeds chunk size %d", c.MinChunkSize, c.ChunkSize)
	}
	return nil
}

// Chunk is a sized text segment ready for embedding and indexing.
type Chunk struct {
	Content        string    `json:"content"`
	Index          int       `json:"index"` // Sequence number within the source document.
	SourceFilename string    `json:"source_filename,omitempty"`
	SourceURL      string    `json:"source_url,omitempty"`
	Embedding      []float32 `json:"embedding,omitempty"`
}

// Split slides a ChunkSize-token window across text, advancing by
// ChunkSize-ChunkOverlap tokens per step. Windows whose whitespace-joined
// text is shorter than MinChunkSize are dropped silently; emitted indices
// stay gap-free. Empty input yields an empty slice, not an error.
func Split(text string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := cfg.ChunkSize - cfg.ChunkOverlap
	var chunks []Chunk
	for i := 0; i < len(tokens); i += step {
		end := i + cfg.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		content := strings.Join(tokens[i:end], " ")
		if len(content) >= cfg.MinChunkSize {
			chunks = append(chunks, Chunk{
				Content: content,
				Index:   len(chunks),
			})
		}
		if end == len(tokens) {
			break
		}
	}

	return chunks, nil
}

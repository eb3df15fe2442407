package pipeline

import (
	"context"

	"github.com/calegari/polyingest/internal/chunker"
)

// StorageSink stores original documents and translated text in an external
// object store. Implementations must be safe for concurrent use.
type StorageSink interface {
	// Upload stores raw document bytes under name and returns the blob URL.
	Upload(ctx context.Context, data []byte, name string) (string, error)
	// UploadText stores text content under name and returns the blob URL.
	UploadText(ctx context.Context, content, name string) (string, error)
}

// IndexSink accepts chunks into the search index and reports how many were
// accepted. Partial acceptance is not an error.
type IndexSink interface {
	Index(ctx context.Context, chunks []chunker.Chunk) (int, error)
}

// Embedder generates vector embeddings for chunk texts, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

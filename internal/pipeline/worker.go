package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calegari/polyingest/internal/chunker"
	"github.com/calegari/polyingest/internal/extractor"
	"github.com/calegari/polyingest/internal/language"
)

// Worker runs a single document through the full stage sequence:
// validate -> upload -> extract -> decide language -> chunk -> embed -> index.
// Every fatal stage error is converted into a failed Outcome here; nothing
// escapes to the orchestrator, so one document can never abort its siblings.
type Worker struct {
	extractor *extractor.Extractor
	decider   *language.Decider
	store     StorageSink // optional; nil skips the upload steps
	embedder  Embedder    // optional; nil indexes plain chunks
	index     IndexSink

	chunkCfg   chunker.Config
	minContent int
	targetLang string
	log        *slog.Logger
}

func NewWorker(ext *extractor.Extractor, decider *language.Decider, store StorageSink, embedder Embedder, index IndexSink, chunkCfg chunker.Config, minContent int, targetLang string, log *slog.Logger) *Worker {
	if minContent <= 0 {
		minContent = 50
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		extractor:  ext,
		decider:    decider,
		store:      store,
		embedder:   embedder,
		index:      index,
		chunkCfg:   chunkCfg,
		minContent: minContent,
		targetLang: targetLang,
		log:        log,
	}
}

// Process ingests one document and returns its outcome. It never returns
// an error: failures are reported through the Outcome.
func (w *Worker) Process(ctx context.Context, path string) Outcome {
	start := time.Now()
	format := extractor.FormatFor(path)
	log := w.log.With("path", path, "format", format)

	fail := func(err error) Outcome {
		log.Error("document processing failed", "error", err)
		return Outcome{
			Path:             path,
			Format:           format,
			DetectedLanguage: language.LanguageUnknown,
			Error:            err.Error(),
			Elapsed:          time.Since(start),
		}
	}

	if !w.extractor.Supported(format) {
		return fail(&extractor.UnsupportedFormatError{Format: format})
	}

	// Upload the original document. Storage failure here is fatal: the
	// index would otherwise reference a blob that does not exist.
	var blobURL string
	if w.store != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return fail(fmt.Errorf("read document: %w", err))
		}
		name := fmt.Sprintf("documents/%s-%s", uuid.NewString(), filepath.Base(path))
		blobURL, err = w.store.Upload(ctx, data, name)
		if err != nil {
			return fail(fmt.Errorf("upload original: %w", err))
		}
	}

	text, err := w.extractor.Extract(ctx, path, format)
	if err != nil {
		return fail(err)
	}
	if n := len(strings.TrimSpace(text)); n < w.minContent {
		return fail(&InsufficientContentError{Chars: n, Min: w.minContent})
	}

	decision := w.decider.Decide(ctx, text)

	// The translated-text upload is best-effort: a storage hiccup must not
	// block ingestion of content we already hold in memory.
	if decision.Translated && w.store != nil {
		name := fmt.Sprintf("translated/%s-to-%s/%s-%s.txt",
			decision.DetectedLanguage, w.targetLang, uuid.NewString(), filepath.Base(path))
		if _, err := w.store.UploadText(ctx, decision.FinalText, name); err != nil {
			log.Warn("translated text upload failed", "error", err)
		}
	}

	chunks, err := chunker.Split(decision.FinalText, w.chunkCfg)
	if err != nil {
		return fail(fmt.Errorf("chunk: %w", err))
	}
	for i := range chunks {
		chunks[i].SourceFilename = filepath.Base(path)
		chunks[i].SourceURL = blobURL
	}

	w.attachEmbeddings(ctx, chunks, log)

	// A cancelled document must not index a partial chunk set.
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	indexed := 0
	if len(chunks) > 0 {
		indexed, err = w.index.Index(ctx, chunks)
		if err != nil {
			return fail(fmt.Errorf("index chunks: %w", err))
		}
		if indexed < len(chunks) {
			log.Warn("index accepted fewer chunks than submitted",
				"submitted", len(chunks), "accepted", indexed)
		}
	}

	log.Info("document ingested",
		"detected_language", decision.DetectedLanguage,
		"translated", decision.Translated,
		"chunks", indexed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return Outcome{
		Success:          true,
		Path:             path,
		Format:           format,
		DetectedLanguage: decision.DetectedLanguage,
		Translated:       decision.Translated,
		ChunkCount:       indexed,
		BlobURL:          blobURL,
		Elapsed:          time.Since(start),
		TranslationStats: decision.Stats,
	}
}

// attachEmbeddings fills in chunk vectors. Embedding failure degrades to
// plain chunks; the index still gets the text.
func (w *Worker) attachEmbeddings(ctx context.Context, chunks []chunker.Chunk, log *slog.Logger) {
	if w.embedder == nil || len(chunks) == 0 {
		return
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := w.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		log.Warn("embedding failed, indexing chunks without vectors", "error", err)
		return
	}
	if len(vectors) != len(chunks) {
		log.Warn("embedder returned unexpected vector count",
			"want", len(chunks), "got", len(vectors))
		return
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
}

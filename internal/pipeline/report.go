package pipeline

import (
	"time"

	"github.com/calegari/polyingest/internal/extractor"
	"github.com/calegari/polyingest/internal/language"
)

// Outcome is the result of processing one document. It is created once by
// the worker and immutable afterwards.
type Outcome struct {
	Success          bool                       `json:"success"`
	Path             string                     `json:"path"`
	Format           extractor.Format           `json:"format"`
	DetectedLanguage string                     `json:"detected_language"`
	Translated       bool                       `json:"translated"`
	ChunkCount       int                        `json:"chunk_count"`
	BlobURL          string                     `json:"blob_url,omitempty"`
	Error            string                     `json:"error,omitempty"`
	Elapsed          time.Duration              `json:"elapsed"`
	TranslationStats *language.TranslationStats `json:"translation_stats,omitempty"`
}

// Report aggregates all outcomes of a run. Outcomes appear in completion
// order, not submission order.
type Report struct {
	Success     bool          `json:"success"` // True only when every document succeeded.
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Translated  int           `json:"translated"`
	TotalChunks int           `json:"total_chunks"`
	Elapsed     time.Duration `json:"elapsed"`
	Outcomes    []Outcome     `json:"outcomes"`
}

// Aggregate folds per-document outcomes into a run report.
func Aggregate(outcomes []Outcome, elapsed time.Duration) Report {
	r := Report{
		Total:    len(outcomes),
		Elapsed:  elapsed,
		Outcomes: outcomes,
	}
	for _, o := range outcomes {
		if o.Success {
			r.Succeeded++
		} else {
			r.Failed++
		}
		if o.Translated {
			r.Translated++
		}
		r.TotalChunks += o.ChunkCount
	}
	r.Success = r.Failed == 0
	return r
}

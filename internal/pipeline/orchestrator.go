package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/calegari/polyingest/internal/extractor"
	"github.com/calegari/polyingest/internal/language"
)

// Orchestrator fans documents out to a fixed-size worker pool and collects
// outcomes as they complete. Individual document failures never fail the
// run; Run itself errors only for empty input or pool construction.
type Orchestrator struct {
	worker        *Worker
	maxConcurrent int
	log           *slog.Logger
}

func NewOrchestrator(worker *Worker, maxConcurrent int, log *slog.Logger) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		worker:        worker,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// Run processes all documents concurrently and aggregates their outcomes
// into a report. Outcomes are collected in completion order. Run waits for
// every submission to finish before returning.
func (o *Orchestrator) Run(ctx context.Context, paths []string) (Report, error) {
	if len(paths) == 0 {
		return Report{}, fmt.Errorf("no documents to ingest")
	}

	pool, err := ants.NewPool(o.maxConcurrent)
	if err != nil {
		return Report{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	o.log.Info("starting ingestion run", "documents", len(paths), "workers", o.maxConcurrent)
	start := time.Now()

	results := make(chan Outcome, len(paths))
	var wg sync.WaitGroup
	for _, path := range paths {
		wg.Add(1)
		p := path
		if err := pool.Submit(func() {
			defer wg.Done()
			results <- o.worker.Process(ctx, p)
		}); err != nil {
			wg.Done()
			results <- Outcome{
				Path:             p,
				Format:           extractor.FormatFor(p),
				DetectedLanguage: language.LanguageUnknown,
				Error:            fmt.Sprintf("submit to pool: %s", err),
			}
		}
	}

	// Barrier: every document finishes (or fails) before the report exists.
	wg.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(paths))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}

	report := Aggregate(outcomes, time.Since(start))
	o.log.Info("ingestion run finished",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"translated", report.Translated,
		"chunks", report.TotalChunks,
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)
	return report, nil
}

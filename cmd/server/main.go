package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calegari/polyingest/internal/api"
	"github.com/calegari/polyingest/internal/blobstore"
	"github.com/calegari/polyingest/internal/chunker"
	"github.com/calegari/polyingest/internal/config"
	"github.com/calegari/polyingest/internal/docintel"
	"github.com/calegari/polyingest/internal/embed"
	"github.com/calegari/polyingest/internal/extractor"
	"github.com/calegari/polyingest/internal/language"
	"github.com/calegari/polyingest/internal/pipeline"
	"github.com/calegari/polyingest/internal/searchindex"
	"github.com/calegari/polyingest/internal/translate"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients. Blob storage, translation and embeddings are
	// optional; the pipeline degrades without them.
	var store pipeline.StorageSink
	var blob *blobstore.Client
	if cfg.BlobEndpoint != "" {
		blob = blobstore.NewClient(cfg.BlobEndpoint, cfg.BlobContainer, cfg.BlobAPIKey)
		store = blob
	}

	var translator language.Translator
	var trans *translate.Client
	if cfg.TranslatorEndpoint != "" {
		trans = translate.NewClient(cfg.TranslatorEndpoint, cfg.TranslatorAPIKey, cfg.TranslatorRegion)
		translator = trans
	}

	var analyzer extractor.Analyzer = docintel.Local{}
	var remote *docintel.Client
	if cfg.DocIntelEndpoint != "" {
		remote = docintel.NewClient(cfg.DocIntelEndpoint, cfg.DocIntelAPIKey)
		analyzer = remote
	}

	var embedder pipeline.Embedder
	if cfg.EmbeddingHost != "" {
		e, err := embed.New(cfg.EmbeddingHost, cfg.EmbeddingModel, cfg.EmbeddingToken, log)
		if err != nil {
			log.Error("embedding client init failed", "error", err)
			os.Exit(1)
		}
		embedder = e
	}

	index := searchindex.NewClient(cfg.SearchEndpoint, cfg.SearchIndex, cfg.SearchAPIKey)

	// Assemble the pipeline.
	formats := make([]extractor.Format, 0, len(cfg.SupportedFormats))
	for _, f := range cfg.SupportedFormats {
		formats = append(formats, extractor.Format(f))
	}
	ext := extractor.New(analyzer, formats, cfg.PDFTextThreshold, log)
	decider := language.NewDecider(translator, language.Settings{
		Enabled:        cfg.TranslationEnabled,
		Force:          cfg.ForceTranslation,
		TargetLanguage: cfg.TargetLanguage,
	}, log)
	worker := pipeline.NewWorker(ext, decider, store, embedder, index, chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		MinChunkSize: cfg.MinChunkSize,
	}, cfg.MinContentLength, cfg.TargetLanguage, log)
	orch := pipeline.NewOrchestrator(worker, cfg.MaxConcurrentDocs, log)

	runs := pipeline.NewRunStore(cfg.RunTTL)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runs.Cleanup()
			}
		}
	}()

	srv := api.NewServer(orch, runs, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		index.Close()
		if blob != nil {
			blob.Close()
		}
		if trans != nil {
			trans.Close()
		}
		if remote != nil {
			remote.Close()
		}
	}()

	log.Info("starting polyingest", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

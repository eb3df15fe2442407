package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

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
	app := &cli.App{
		Name:      "ingest",
		Usage:     "Ingest multilingual documents into the search index",
		ArgsUsage: "[files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "batch",
				Aliases: []string{"b"},
				Usage:   "Ingest every supported document under this directory",
			},
			&cli.StringFlag{
				Name:  "target-lang",
				Usage: "Translation target language",
			},
			&cli.BoolFlag{
				Name:  "no-translate",
				Usage: "Disable translation; index documents in their source language",
			},
			&cli.BoolFlag{
				Name:  "force-translate",
				Usage: "Translate even when the detected language matches the target",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Chunk size in tokens",
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Token overlap between consecutive chunks",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Maximum documents processed in parallel",
			},
		},
		Before: setupLogger,
		Action: ingestCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()
	logger := slog.Default()

	cfg := config.Load()
	if cfg.SearchEndpoint == "" {
		return fmt.Errorf("SEARCH_ENDPOINT is required")
	}
	if cfg.SearchAPIKey == "" {
		return fmt.Errorf("SEARCH_API_KEY is required")
	}

	applyFlags(&cfg, c)

	paths, err := collectPaths(c, cfg.SupportedFormats)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents given: pass file paths or --batch <dir>")
	}

	var store pipeline.StorageSink
	if cfg.BlobEndpoint != "" {
		blob := blobstore.NewClient(cfg.BlobEndpoint, cfg.BlobContainer, cfg.BlobAPIKey)
		defer blob.Close()
		store = blob
	}

	var translator language.Translator
	if cfg.TranslatorEndpoint != "" {
		trans := translate.NewClient(cfg.TranslatorEndpoint, cfg.TranslatorAPIKey, cfg.TranslatorRegion)
		defer trans.Close()
		translator = trans
	}

	var analyzer extractor.Analyzer = docintel.Local{}
	if cfg.DocIntelEndpoint != "" {
		remote := docintel.NewClient(cfg.DocIntelEndpoint, cfg.DocIntelAPIKey)
		defer remote.Close()
		analyzer = remote
	}

	var embedder pipeline.Embedder
	if cfg.EmbeddingHost != "" {
		e, err := embed.New(cfg.EmbeddingHost, cfg.EmbeddingModel, cfg.EmbeddingToken, logger)
		if err != nil {
			return fmt.Errorf("create embedder: %w", err)
		}
		embedder = e
	}

	index := searchindex.NewClient(cfg.SearchEndpoint, cfg.SearchIndex, cfg.SearchAPIKey)
	defer index.Close()

	formats := make([]extractor.Format, 0, len(cfg.SupportedFormats))
	for _, f := range cfg.SupportedFormats {
		formats = append(formats, extractor.Format(f))
	}
	ext := extractor.New(analyzer, formats, cfg.PDFTextThreshold, logger)
	decider := language.NewDecider(translator, language.Settings{
		Enabled:        cfg.TranslationEnabled,
		Force:          cfg.ForceTranslation,
		TargetLanguage: cfg.TargetLanguage,
	}, logger)
	worker := pipeline.NewWorker(ext, decider, store, embedder, index, chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		MinChunkSize: cfg.MinChunkSize,
	}, cfg.MinContentLength, cfg.TargetLanguage, logger)
	orch := pipeline.NewOrchestrator(worker, cfg.MaxConcurrentDocs, logger)

	report, err := orch.Run(ctx, paths)
	if err != nil {
		return err
	}

	printSummary(report)
	if report.Failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func applyFlags(cfg *config.Config, c *cli.Context) {
	if v := c.String("target-lang"); v != "" {
		cfg.TargetLanguage = v
	}
	if c.Bool("no-translate") {
		cfg.TranslationEnabled = false
	}
	if c.Bool("force-translate") {
		cfg.ForceTranslation = true
	}
	if v := c.Int("chunk-size"); v > 0 {
		cfg.ChunkSize = v
	}
	if v := c.Int("chunk-overlap"); v > 0 && v < cfg.ChunkSize {
		cfg.ChunkOverlap = v
	}
	if v := c.Int("concurrency"); v > 0 {
		cfg.MaxConcurrentDocs = v
	}
}

// collectPaths gathers the documents to ingest: positional arguments plus,
// with --batch, every supported file under the given directory.
func collectPaths(c *cli.Context, supported []string) ([]string, error) {
	paths := c.Args().Slice()

	dir := c.String("batch")
	if dir == "" {
		return paths, nil
	}

	formats := make(map[extractor.Format]bool, len(supported))
	for _, f := range supported {
		formats[extractor.Format(f)] = true
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if formats[extractor.FormatFor(path)] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return paths, nil
}

func printSummary(report pipeline.Report) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("INGESTION SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total documents:   %d\n", report.Total)
	fmt.Printf("Succeeded:         %d\n", report.Succeeded)
	fmt.Printf("Failed:            %d\n", report.Failed)
	fmt.Printf("Translated:        %d\n", report.Translated)
	fmt.Printf("Chunks indexed:    %d\n", report.TotalChunks)
	fmt.Printf("Elapsed:           %.2fs\n", report.Elapsed.Seconds())
	if report.Total > 0 {
		fmt.Printf("Success rate:      %.1f%%\n", float64(report.Succeeded)/float64(report.Total)*100)
	}

	for _, o := range report.Outcomes {
		if !o.Success {
			fmt.Printf("  FAILED %s: %s\n", o.Path, o.Error)
		}
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

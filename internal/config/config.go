package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port   string
	APIKey string

	// Blob storage
	BlobEndpoint  string
	BlobContainer string
	BlobAPIKey    string

	// Translator
	TranslatorEndpoint string
	TranslatorAPIKey   string
	TranslatorRegion   string

	// Document analysis (OCR)
	DocIntelEndpoint string
	DocIntelAPIKey   string

	// Search index
	SearchEndpoint string
	SearchIndex    string
	SearchAPIKey   string

	// Embeddings
	EmbeddingHost  string
	EmbeddingModel string
	EmbeddingToken string

	// Processing
	ChunkSize          int
	ChunkOverlap       int
	MinChunkSize       int
	MinContentLength   int
	PDFTextThreshold   int
	MaxConcurrentDocs  int
	TranslationEnabled bool
	ForceTranslation   bool
	TargetLanguage     string
	SupportedFormats   []string

	// Run state
	RunTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port:   envOr("PORT", "8080"),
		APIKey: os.Getenv("API_KEY"),

		BlobEndpoint:  os.Getenv("BLOB_ENDPOINT"),
		BlobContainer: envOr("BLOB_CONTAINER", "documents"),
		BlobAPIKey:    os.Getenv("BLOB_API_KEY"),

		TranslatorEndpoint: os.Getenv("TRANSLATOR_ENDPOINT"),
		TranslatorAPIKey:   os.Getenv("TRANSLATOR_API_KEY"),
		TranslatorRegion:   os.Getenv("TRANSLATOR_REGION"),

		DocIntelEndpoint: os.Getenv("DOCINTEL_ENDPOINT"),
		DocIntelAPIKey:   os.Getenv("DOCINTEL_API_KEY"),

		SearchEndpoint: os.Getenv("SEARCH_ENDPOINT"),
		SearchIndex:    envOr("SEARCH_INDEX", "multilingual-documents"),
		SearchAPIKey:   os.Getenv("SEARCH_API_KEY"),

		EmbeddingHost:  os.Getenv("EMBEDDING_HOST"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbeddingToken: os.Getenv("EMBEDDING_TOKEN"),

		ChunkSize:          envInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       envInt("CHUNK_OVERLAP", 100),
		MinChunkSize:       envInt("MIN_CHUNK_SIZE", 50),
		MinContentLength:   envInt("MIN_CONTENT_LENGTH", 50),
		PDFTextThreshold:   envInt("PDF_TEXT_THRESHOLD", 100),
		MaxConcurrentDocs:  envInt("MAX_CONCURRENT_DOCS", 5),
		TranslationEnabled: envBool("TRANSLATION_ENABLED", true),
		ForceTranslation:   envBool("FORCE_TRANSLATION", false),
		TargetLanguage:     envOr("TARGET_LANGUAGE", "en"),
		SupportedFormats:   envList("SUPPORTED_FORMATS", []string{"pdf", "docx", "txt", "md", "html"}),

		RunTTL: envDuration("RUN_TTL", 1*time.Hour),
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.MinChunkSize <= 0 || cfg.MinChunkSize > cfg.ChunkSize {
		cfg.MinChunkSize = 50
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = 50
	}
	if cfg.MaxConcurrentDocs <= 0 {
		cfg.MaxConcurrentDocs = 5
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks the settings the server cannot run without.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.SearchEndpoint == "" {
		return fmt.Errorf("SEARCH_ENDPOINT is required")
	}
	if c.SearchAPIKey == "" {
		return fmt.Errorf("SEARCH_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

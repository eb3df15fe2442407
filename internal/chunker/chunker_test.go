package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestSplit_WindowCount(t *testing.T) {
	// 2500 tokens with size 1000 and overlap 100 -> windows at 0, 900, 1800.
	cfg := Config{ChunkSize: 1000, ChunkOverlap: 100, MinChunkSize: 50}
	chunks, err := Split(words(2500), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
	}
}

func TestSplit_OverlapSharesTokens(t *testing.T) {
	// Number each token so overlap regions are identifiable.
	tokens := make([]string, 250)
	for i := range tokens {
		tokens[i] = "t" + strings.Repeat("x", i%7) // deterministic, varied
	}
	cfg := Config{ChunkSize: 100, ChunkOverlap: 20, MinChunkSize: 1}
	chunks, err := Split(strings.Join(tokens, " "), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	first := strings.Fields(chunks[0].Content)
	second := strings.Fields(chunks[1].Content)
	tail := first[len(first)-cfg.ChunkOverlap:]
	head := second[:cfg.ChunkOverlap]
	if !reflect.DeepEqual(tail, head) {
		t.Errorf("expected chunk 1 to begin with the last %d tokens of chunk 0", cfg.ChunkOverlap)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := Split("", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty input, got %d", len(chunks))
	}
}

func TestSplit_BelowMinimum(t *testing.T) {
	chunks, err := Split("too short", Config{ChunkSize: 100, ChunkOverlap: 10, MinChunkSize: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks below minimum, got %d", len(chunks))
	}
}

func TestSplit_ShortTailDropped(t *testing.T) {
	// The final window lands below MinChunkSize and must be dropped
	// without leaving a gap in the indices.
	cfg := Config{ChunkSize: 10, ChunkOverlap: 2, MinChunkSize: 20}
	chunks, err := Split(words(19), cfg) // windows of 10, 10 and 3 tokens; the tail renders at 14 chars
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks after dropping the tail, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if len(c.Content) < cfg.MinChunkSize {
			t.Errorf("chunk %d: rendered length %d below minimum %d", i, len(c.Content), cfg.MinChunkSize)
		}
	}
}

func TestSplit_Idempotent(t *testing.T) {
	text := words(321)
	cfg := Config{ChunkSize: 100, ChunkOverlap: 25, MinChunkSize: 10}
	a, err := Split(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Split(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical chunk sequences from identical input")
	}
}

func TestSplit_InvalidConfig(t *testing.T) {
	cases := []Config{
		{ChunkSize: 0, ChunkOverlap: 10, MinChunkSize: 5},
		{ChunkSize: 100, ChunkOverlap: 0, MinChunkSize: 5},
		{ChunkSize: 100, ChunkOverlap: 100, MinChunkSize: 5},
		{ChunkSize: 100, ChunkOverlap: 150, MinChunkSize: 5},
		{ChunkSize: 100, ChunkOverlap: 10, MinChunkSize: 101},
	}
	for _, cfg := range cases {
		if _, err := Split("some text", cfg); err == nil {
			t.Errorf("expected error for config %+v", cfg)
		}
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatPPTX     Format = "pptx"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatUnknown  Format = "unknown"
)

// formatByExtension maps file extensions to canonical formats.
var formatByExtension = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".pptx":     FormatPPTX,
	".txt":      FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
}

// FormatFor infers the document format from a filename extension.
func FormatFor(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := formatByExtension[ext]; ok {
		return f
	}
	if ext != "" {
		return Format(strings.TrimPrefix(ext, "."))
	}
	return FormatUnknown
}

// UnsupportedFormatError reports a format outside the configured set.
type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.Format)
}

// Analyzer is the heavyweight OCR/document-analysis backend used when no
// fast extraction path exists or the fast path yields too little text.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (string, error)
}

// Extractor converts documents into plain text, applying a per-format
// fallback chain.
type Extractor struct {
	analyzer         Analyzer
	supported        map[Format]bool
	pdfTextThreshold int
	log              *slog.Logger

	// Injectable for tests; defaults to the ledongthuc/pdf text layer.
	pdfText func(path string) (string, error)
}

// New creates an Extractor. analyzer may be nil, in which case formats
// that require document analysis fail with an extraction error.
func New(analyzer Analyzer, supported []Format, pdfTextThreshold int, log *slog.Logger) *Extractor {
	set := make(map[Format]bool, len(supported))
	for _, f := range supported {
		set[f] = true
	}
	if pdfTextThreshold <= 0 {
		pdfTextThreshold = 100
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		analyzer:         analyzer,
		supported:        set,
		pdfTextThreshold: pdfTextThreshold,
		log:              log,
		pdfText:          extractPDFText,
	}
}

// Supported reports whether format is in the configured set.
func (e *Extractor) Supported(format Format) bool {
	return e.supported[format]
}

// Extract reads the document at path and returns its plain text. The
// strategy chain per format is tried in order; the first success wins.
func (e *Extractor) Extract(ctx context.Context, path string, format Format) (string, error) {
	if !e.supported[format] {
		return "", &UnsupportedFormatError{Format: format}
	}

	switch format {
	case FormatPDF:
		return e.extractPDF(ctx, path)
	case FormatDOCX, FormatPPTX:
		return e.analyze(ctx, path)
	case FormatText:
		return readTextFile(path)
	case FormatMarkdown:
		return e.extractMarkdown(path)
	case FormatHTML:
		return e.extractHTML(path)
	default:
		// A configured format with no fast path goes straight to the
		// analysis backend, like the binary office formats.
		return e.analyze(ctx, path)
	}
}

// extractPDF tries the structural text layer first. If that fails or the
// result is below the threshold (probably a scanned document), it falls
// back to the analysis backend.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	text, err := e.pdfText(path)
	if err == nil && len(strings.TrimSpace(text)) >= e.pdfTextThreshold {
		return text, nil
	}
	if err != nil {
		e.log.Debug("pdf text layer unavailable, using analysis backend", "path", path, "error", err)
	} else {
		e.log.Debug("pdf text layer too short, using analysis backend", "path", path, "chars", len(strings.TrimSpace(text)))
	}
	return e.analyze(ctx, path)
}

// analyze hands the raw file bytes to the document-analysis backend.
func (e *Extractor) analyze(ctx context.Context, path string) (string, error) {
	if e.analyzer == nil {
		return "", fmt.Errorf("extract %s: no document analysis backend configured", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	text, err := e.analyzer.Analyze(ctx, data)
	if err != nil {
		return "", fmt.Errorf("document analysis: %w", err)
	}
	return text, nil
}

func (e *Extractor) extractMarkdown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	text, err := plainTextFromMarkdown(data)
	if err != nil || strings.TrimSpace(text) == "" {
		// Markdown is readable as-is; a raw read is an acceptable fallback.
		return tolerantString(data), nil
	}
	return text, nil
}

func (e *Extractor) extractHTML(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	text, err := plainTextFromHTML(tolerantString(data))
	if err != nil || strings.TrimSpace(text) == "" {
		// Degraded but non-fatal: index the raw markup rather than nothing.
		e.log.Warn("html markup strip failed, keeping raw markup", "path", path)
		return tolerantString(data), nil
	}
	return text, nil
}

// readTextFile reads a plain text file, replacing undecodable byte
// sequences instead of failing.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return tolerantString(data), nil
}

func tolerantString(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}

// extractPDFText pulls the text layer from a PDF, page by page.
func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

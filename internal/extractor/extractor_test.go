package extractor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// countingAnalyzer records how often the analysis backend is invoked.
type countingAnalyzer struct {
	text  string
	err   error
	calls int
}

func (a *countingAnalyzer) Analyze(ctx context.Context, data []byte) (string, error) {
	a.calls++
	return a.text, a.err
}

func allFormats() []Format {
	return []Format{FormatPDF, FormatDOCX, FormatText, FormatMarkdown, FormatHTML}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFormatFor(t *testing.T) {
	cases := map[string]Format{
		"report.pdf":   FormatPDF,
		"Memo.DOCX":    FormatDOCX,
		"slides.pptx":  FormatPPTX,
		"notes.txt":    FormatText,
		"readme.md":    FormatMarkdown,
		"doc.markdown": FormatMarkdown,
		"index.html":   FormatHTML,
		"page.htm":     FormatHTML,
		"archive.zip":  Format("zip"),
		"noext":        FormatUnknown,
	}
	for path, want := range cases {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New(nil, []Format{FormatPDF, FormatDOCX, FormatText}, 0, slog.Default())
	_, err := e.Extract(context.Background(), "file.zip", Format("zip"))
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if ufe.Format != Format("zip") {
		t.Errorf("expected format zip in error, got %q", ufe.Format)
	}
}

func TestExtract_PlainText(t *testing.T) {
	path := writeFile(t, "notes.txt", "plain text content\nsecond line")
	e := New(nil, allFormats(), 0, slog.Default())
	text, err := e.Extract(context.Background(), path, FormatText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "second line") {
		t.Errorf("expected file content, got %q", text)
	}
}

func TestExtract_PlainTextInvalidUTF8(t *testing.T) {
	path := writeFile(t, "notes.txt", "valid \xff\xfe invalid")
	e := New(nil, allFormats(), 0, slog.Default())
	text, err := e.Extract(context.Background(), path, FormatText)
	if err != nil {
		t.Fatalf("expected tolerant read, got error: %v", err)
	}
	if !strings.Contains(text, "valid") || !strings.Contains(text, "invalid") {
		t.Errorf("expected surviving content, got %q", text)
	}
}

func TestExtract_HTMLStripsMarkup(t *testing.T) {
	path := writeFile(t, "page.html", `<html><head><title>T</title><script>var x;</script></head>
<body><h1>Heading</h1><p>Body paragraph.</p></body></html>`)
	e := New(nil, allFormats(), 0, slog.Default())
	text, err := e.Extract(context.Background(), path, FormatHTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Heading") || !strings.Contains(text, "Body paragraph.") {
		t.Errorf("expected visible text, got %q", text)
	}
	if strings.Contains(text, "var x") || strings.Contains(text, "<p>") {
		t.Errorf("expected markup and scripts stripped, got %q", text)
	}
}

func TestExtract_MarkdownFlattened(t *testing.T) {
	path := writeFile(t, "readme.md", "# Title\n\nSome **bold** prose.\n")
	e := New(nil, allFormats(), 0, slog.Default())
	text, err := e.Extract(context.Background(), path, FormatMarkdown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Title") || !strings.Contains(text, "bold") {
		t.Errorf("expected flattened content, got %q", text)
	}
}

func TestExtract_PDFShortTextFallsBack(t *testing.T) {
	// Fast path succeeds but yields only 10 chars, the signature of a
	// scanned document; the analysis backend must be invoked exactly once.
	path := writeFile(t, "scan.pdf", "%PDF-1.4 not a real pdf")
	analyzer := &countingAnalyzer{text: strings.Repeat("ocr text ", 30)}
	e := New(analyzer, allFormats(), 100, slog.Default())
	e.pdfText = func(string) (string, error) { return "ten chars.", nil }

	text, err := e.Extract(context.Background(), path, FormatPDF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analyzer.calls != 1 {
		t.Errorf("expected exactly 1 analyzer call, got %d", analyzer.calls)
	}
	if !strings.Contains(text, "ocr text") {
		t.Errorf("expected analyzer output, got %q", text)
	}
}

func TestExtract_PDFFastPathSufficient(t *testing.T) {
	path := writeFile(t, "doc.pdf", "%PDF-1.4")
	analyzer := &countingAnalyzer{text: "should not be used"}
	e := New(analyzer, allFormats(), 100, slog.Default())
	long := strings.Repeat("structural text layer ", 20)
	e.pdfText = func(string) (string, error) { return long, nil }

	text, err := e.Extract(context.Background(), path, FormatPDF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analyzer.calls != 0 {
		t.Errorf("expected no analyzer calls, got %d", analyzer.calls)
	}
	if text != long {
		t.Errorf("expected fast-path output, got %q", text)
	}
}

func TestExtract_PDFErrorFallsBack(t *testing.T) {
	path := writeFile(t, "bad.pdf", "garbage")
	analyzer := &countingAnalyzer{text: strings.Repeat("analyzed ", 20)}
	e := New(analyzer, allFormats(), 100, slog.Default())
	e.pdfText = func(string) (string, error) { return "", errors.New("no text layer") }

	if _, err := e.Extract(context.Background(), path, FormatPDF); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analyzer.calls != 1 {
		t.Errorf("expected 1 analyzer call, got %d", analyzer.calls)
	}
}

func TestExtract_DOCXRequiresAnalyzer(t *testing.T) {
	path := writeFile(t, "memo.docx", "PK fake")
	e := New(nil, allFormats(), 0, slog.Default())
	if _, err := e.Extract(context.Background(), path, FormatDOCX); err == nil {
		t.Fatal("expected error when no analyzer configured")
	}

	analyzer := &countingAnalyzer{text: "analyzed docx text"}
	e = New(analyzer, allFormats(), 0, slog.Default())
	text, err := e.Extract(context.Background(), path, FormatDOCX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analyzer.calls != 1 || text != "analyzed docx text" {
		t.Errorf("expected direct analyzer extraction, calls=%d text=%q", analyzer.calls, text)
	}
}

func TestExtract_PPTXGoesToAnalyzer(t *testing.T) {
	path := writeFile(t, "slides.pptx", "PK fake")
	analyzer := &countingAnalyzer{text: "slide one text"}
	e := New(analyzer, []Format{FormatPDF, FormatDOCX, FormatPPTX}, 0, slog.Default())

	text, err := e.Extract(context.Background(), path, FormatPPTX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analyzer.calls != 1 || text != "slide one text" {
		t.Errorf("expected direct analyzer extraction, calls=%d text=%q", analyzer.calls, text)
	}
}

func TestExtract_ConfiguredFormatWithoutFastPath(t *testing.T) {
	// A format the operator enables but the extractor has no dedicated
	// strategy for must reach the analysis backend, not fail as
	// unsupported after passing the supported-set check.
	path := writeFile(t, "letter.rtf", `{\rtf1 fake}`)
	analyzer := &countingAnalyzer{text: "recognized rtf text"}
	e := New(analyzer, []Format{Format("rtf")}, 0, slog.Default())

	if !e.Supported(Format("rtf")) {
		t.Fatal("expected rtf to be supported when configured")
	}
	text, err := e.Extract(context.Background(), path, Format("rtf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analyzer.calls != 1 || text != "recognized rtf text" {
		t.Errorf("expected analyzer extraction, calls=%d text=%q", analyzer.calls, text)
	}
}

func TestExtract_AnalyzerFailureIsFatal(t *testing.T) {
	path := writeFile(t, "memo.docx", "PK fake")
	analyzer := &countingAnalyzer{err: errors.New("service down")}
	e := New(analyzer, allFormats(), 0, slog.Default())
	if _, err := e.Extract(context.Background(), path, FormatDOCX); err == nil {
		t.Fatal("expected analyzer failure to propagate")
	}
}

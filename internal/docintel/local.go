package docintel

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
)

// Local analyzes documents without a remote service. It handles the
// container formats it can parse natively (docx, pdf text layer) and
// rejects everything else; it performs no OCR.
type Local struct{}

// Analyze sniffs the payload type and extracts its text.
func (Local) Analyze(ctx context.Context, data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("PK")):
		return docxText(data)
	case bytes.HasPrefix(data, []byte("%PDF")):
		return pdfText(data)
	default:
		return "", fmt.Errorf("local analysis: unrecognized payload")
	}
}

// docxText flattens all paragraph runs of a docx document.
func docxText(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var buf strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(text)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("docx contains no text")
	}
	return buf.String(), nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// pdfText reads the pdf text layer from an in-memory document.
func pdfText(data []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

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
	if strings.TrimSpace(buf.String()) == "" {
		return "", fmt.Errorf("pdf contains no text layer")
	}
	return buf.String(), nil
}

// Package translate is a client for a v3-style translation REST API,
// providing language detection and best-effort text translation.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calegari/polyingest/internal/language"
)

const (
	apiVersion = "3.0"

	// maxSegmentChars bounds a single translate request; longer texts are
	// split on rune boundaries and translated segment by segment.
	maxSegmentChars = 5000

	// maxConcurrentSegments bounds parallel segment requests per document.
	maxConcurrentSegments = 4
)

// Client calls the translation service. Safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	region     string
	httpClient *http.Client
}

func NewClient(endpoint, apiKey, region string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		region:   region,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type textItem struct {
	Text string `json:"Text"`
}

type detectResult struct {
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

type translateResult struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// DetectLanguage returns the ISO code of the dominant language of text.
// Detection works on a prefix; sending the whole document buys nothing.
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	sample := text
	if len(sample) > maxSegmentChars {
		sample = sample[:maxSegmentChars]
	}

	var results []detectResult
	if err := c.post(ctx, "/detect", nil, []textItem{{Text: sample}}, &results); err != nil {
		return "", fmt.Errorf("detect language: %w", err)
	}
	if len(results) == 0 || results[0].Language == "" {
		return "", fmt.Errorf("detect language: empty response")
	}
	return results[0].Language, nil
}

// Translate converts text into targetLang, returning the translated text
// and call statistics. Long texts are split into segments translated
// concurrently, reassembled in order.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, language.TranslationStats, error) {
	start := time.Now()
	segments := splitSegments(text, maxSegmentChars)
	translated := make([]string, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSegments)
	for i, seg := range segments {
		g.Go(func() error {
			out, err := c.translateSegment(gctx, seg, targetLang)
			if err != nil {
				return err
			}
			translated[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", language.TranslationStats{}, err
	}

	// Segments keep their separators (a split at a newline leaves it at the
	// head of the next segment), so reassembly adds nothing.
	out := strings.Join(translated, "")
	return out, language.TranslationStats{
		SourceChars:     len(text),
		TranslatedChars: len(out),
		Duration:        time.Since(start),
	}, nil
}

func (c *Client) translateSegment(ctx context.Context, text, targetLang string) (string, error) {
	var lastErr error
	for attempt := range maxRetries {
		var results []translateResult
		err := c.post(ctx, "/translate", url.Values{"to": {targetLang}}, []textItem{{Text: text}}, &results)
		if err == nil {
			if len(results) == 0 || len(results[0].Translations) == 0 {
				return "", fmt.Errorf("translate: empty response")
			}
			return results[0].Translations[0].Text, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("translate: %w", lastErr)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api-version", apiVersion)
	u := c.endpoint + path + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	if c.region != "" {
		httpReq.Header.Set("Ocp-Apim-Subscription-Region", c.region)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("translator api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("translator api status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// splitSegments breaks text into pieces of at most maxChars bytes without
// splitting inside a rune, preferring newline boundaries.
func splitSegments(text string, maxChars int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}
	var segments []string
	for len(text) > maxChars {
		cut := maxChars
		// Prefer to break at a newline inside the window.
		if idx := bytes.LastIndexByte([]byte(text[:cut]), '\n'); idx > 0 {
			cut = idx
		} else {
			// Back off to a rune boundary.
			for cut > 0 && text[cut]&0xC0 == 0x80 {
				cut--
			}
		}
		if cut == 0 {
			cut = maxChars
		}
		segments = append(segments, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		segments = append(segments, text)
	}
	return segments
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

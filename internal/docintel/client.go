// Package docintel provides document-analysis backends for heavyweight
// text extraction: a remote OCR/layout service and a local fallback.
package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls a remote document-analysis (OCR/layout) service.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		httpClient: &http.Client{
			// OCR on large scanned documents is slow.
			Timeout: 5 * time.Minute,
		},
	}
}

type analyzeResponse struct {
	Content string `json:"content"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze submits raw document bytes and returns the recognized text.
func (c *Client) Analyze(ctx context.Context, data []byte) (string, error) {
	u := c.endpoint + "/analyze?model=prebuilt-read"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("analysis api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analysis api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result analyzeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("analysis error: %s: %s", result.Error.Code, result.Error.Message)
	}
	if strings.TrimSpace(result.Content) == "" {
		return "", fmt.Errorf("analysis returned no text")
	}
	return result.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Package searchindex uploads chunks to the search/index service.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calegari/polyingest/internal/chunker"
)

// Client indexes chunks into a named search index.
type Client struct {
	endpoint   string
	indexName  string
	apiKey     string
	httpClient *http.Client
}

func NewClient(endpoint, indexName, apiKey string) *Client {
	return &Client{
		endpoint:  strings.TrimRight(endpoint, "/"),
		indexName: indexName,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type indexDocument struct {
	Action        string    `json:"@search.action"`
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	Title         string    `json:"title"`
	Filepath      string    `json:"filepath"`
	URL           string    `json:"url"`
	ContentVector []float32 `json:"contentVector,omitempty"`
}

type indexRequest struct {
	Value []indexDocument `json:"value"`
}

type indexResponse struct {
	Value []struct {
		Key       string `json:"key"`
		Status    bool   `json:"status"`
		ErrorMsg  string `json:"errorMessage"`
		Statuscde int    `json:"statusCode"`
	} `json:"value"`
}

// Index uploads chunks and returns the number accepted by the service.
// Partial acceptance is reported through the count, not as an error.
func (c *Client) Index(ctx context.Context, chunks []chunker.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]indexDocument, len(chunks))
	for i, chunk := range chunks {
		title := chunk.SourceFilename
		if title == "" {
			title = "Untitled"
		}
		docs[i] = indexDocument{
			Action:        "upload",
			ID:            uuid.NewString(),
			Content:       chunk.Content,
			Title:         fmt.Sprintf("%s (chunk %d)", title, chunk.Index+1),
			Filepath:      chunk.SourceFilename,
			URL:           chunk.SourceURL,
			ContentVector: chunk.Embedding,
		}
	}

	body, err := json.Marshal(indexRequest{Value: docs})
	if err != nil {
		return 0, fmt.Errorf("marshal index batch: %w", err)
	}

	u := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=2023-11-01", c.endpoint, c.indexName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("index api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	// 207 means per-document statuses; inspect the body either way.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return 0, fmt.Errorf("index api status %d: %s", resp.StatusCode, string(respBody))
	}

	var result indexResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	accepted := 0
	for _, r := range result.Value {
		if r.Status {
			accepted++
		}
	}
	return accepted, nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Package blobstore talks to the document object store over HTTP.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable indicates the store could not accept the upload.
var ErrUnavailable = errors.New("blob storage unavailable")

// Client uploads documents and translated text to a blob container.
type Client struct {
	baseURL    string
	container  string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, container, apiKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		container: container,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Upload stores raw document bytes under name and returns the blob URL.
func (c *Client) Upload(ctx context.Context, data []byte, name string) (string, error) {
	return c.put(ctx, data, name, "application/octet-stream")
}

// UploadText stores text content under name and returns the blob URL.
func (c *Client) UploadText(ctx context.Context, content, name string) (string, error) {
	return c.put(ctx, []byte(content), name, "text/plain; charset=utf-8")
}

func (c *Client) put(ctx context.Context, data []byte, name, contentType string) (string, error) {
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, c.container, name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", ErrUnavailable, name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: put %s: status %d: %s", ErrUnavailable, name, resp.StatusCode, string(respBody))
	}
	return u, nil
}

// Close releases any resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

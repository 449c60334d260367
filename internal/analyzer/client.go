// Package analyzer provides the client for the scoring service boundary.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// Client posts uploaded datasets to a scoring service and decodes its
// response. One request per analysis; no retries, no cancellation beyond the
// caller's context.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a scoring service client.
func NewClient(cfg domain.AnalyzerConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: cfg.URL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Analyze uploads the file as multipart form data under the `file` field and
// decodes the suspicious-accounts response. Any non-2xx status or malformed
// body is a failure.
func (c *Client) Analyze(ctx context.Context, fileName string, data []byte) (*domain.AnalysisResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scoring service returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var result domain.AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scoring response: %w", err)
	}

	return &result, nil
}

// Health probes the scoring service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("scoring service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scoring service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

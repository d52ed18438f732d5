// Package store is the HTTP client for the external columnar analytics
// service. The service is an opaque collaborator: it accepts appended data
// points on one endpoint and read-only SELECT-style query text on another,
// answering with a uniform {data: [...]} JSON envelope.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultTimeout = 30 * time.Second
	sourceMarker   = "counterscale"
)

// Row is one loosely-typed result row keyed by physical column name.
type Row map[string]any

// DataPoint is the store's physical record shape: an index plus fixed,
// positional blob and double lists. The positions are a frozen contract;
// see the collect package for the layout.
type DataPoint struct {
	Indexes []string  `json:"indexes"`
	Blobs   []string  `json:"blobs"`
	Doubles []float64 `json:"doubles"`
}

// Config carries the connection settings for the analytics service.
type Config struct {
	QueryURL string
	WriteURL string
	APIToken string
}

// Client issues one HTTP POST per query or write. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	queryURL   string
	writeURL   string
	token      string
	logger     *slog.Logger
}

// NewClient returns a client for the analytics service, or nil if the
// service is not configured in this environment. Callers treat a nil client
// as "store unavailable" and degrade per their own contract.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.QueryURL == "" && cfg.WriteURL == "" {
		return nil
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		queryURL:   cfg.QueryURL,
		writeURL:   cfg.WriteURL,
		token:      cfg.APIToken,
		logger:     logger,
	}
}

type queryEnvelope struct {
	Data []Row `json:"data"`
}

// Query posts the literal query text and decodes the {data: Row[]} envelope.
// A non-success HTTP status is a failed request.
func (c *Client) Query(ctx context.Context, query string) ([]Row, error) {
	if c.queryURL == "" {
		return nil, fmt.Errorf("analytics store has no query endpoint configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	c.setHeaders(req, "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analytics query failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analytics response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Analytics query rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncateForLog(body)))
		return nil, fmt.Errorf("analytics query returned status %d", resp.StatusCode)
	}

	var envelope queryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode analytics envelope: %w", err)
	}
	return envelope.Data, nil
}

// WriteDataPoint appends one record to the store. The call is fire-and-forget
// from the caller's perspective: no retries, no queuing.
func (c *Client) WriteDataPoint(ctx context.Context, point DataPoint) error {
	if c.writeURL == "" {
		return fmt.Errorf("analytics store has no write endpoint configured")
	}

	payload, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("failed to encode data point: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.writeURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build write request: %w", err)
	}
	c.setHeaders(req, "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analytics write failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("analytics write returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, contentType string) {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Source", sourceMarker)
}

func truncateForLog(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

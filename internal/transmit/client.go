// Package transmit sends recorded interval batches to a stint server.
package transmit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fakeyudi/stint/internal/store"
)

// Client posts interval records to the server's ingest endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Push transmits the records as a single JSON batch to POST /api/intervals
// and returns the number of records the server accepted.
func (c *Client) Push(ctx context.Context, records []store.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("encoding interval batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/intervals", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("building intervals request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("posting intervals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("server rejected intervals: %s: %s",
			resp.Status, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Accepted int `json:"accepted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// An older server may answer with an empty body; the batch was
		// still accepted.
		return len(records), nil
	}
	return out.Accepted, nil
}

// Health reports whether the server answers on GET /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reaching server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: %s", resp.Status)
	}
	return nil
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"robotfleet/internal/telemetry"
)

// Client fetches fleet snapshots from a telemetry endpoint.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for the given endpoint URL (e.g. http://host:8000/robots).
func NewClient(url string) *Client {
	return &Client{
		url: url,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch retrieves the current fleet in source order.
func (c *Client) Fetch(ctx context.Context) ([]telemetry.RobotRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return nil, fmt.Errorf("telemetry request failed: %s: %s", res.Status, msg)
		}
		return nil, fmt.Errorf("telemetry request failed: %s", res.Status)
	}

	var records []telemetry.RobotRecord
	if err := json.NewDecoder(res.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}
	return records, nil
}

// Reverse geocoding against a Nominatim-compatible endpoint
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// UnknownLocation is returned when no place name could be resolved.
const UnknownLocation = "Unknown location"

// DefaultUserAgent identifies the dashboard to the geocoding service.
const DefaultUserAgent = "robotfleet-dashboard/1.0"

// Locator resolves coordinates to a display place name.
type Locator interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Client queries a reverse geocoding endpoint.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a client for baseURL (e.g. https://nominatim.openstreetmap.org/reverse).
func NewClient(baseURL, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type reverseResponse struct {
	Address address `json:"address"`
}

type address struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
}

// PlaceName picks the city, then town, then village, falling back to
// UnknownLocation.
func (a address) PlaceName() string {
	for _, name := range []string{a.City, a.Town, a.Village} {
		if name != "" {
			return name
		}
	}
	return UnknownLocation
}

// Reverse returns the place name for the coordinates. A response without a
// usable address yields UnknownLocation and no error.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return "", fmt.Errorf("geocode request failed: %s: %s", res.Status, msg)
		}
		return "", fmt.Errorf("geocode request failed: %s", res.Status)
	}

	var out reverseResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode geocode response: %w", err)
	}
	return out.Address.PlaceName(), nil
}

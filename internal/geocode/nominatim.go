// Package geocode resolves free-text addresses to coordinates through an
// external geocoding service. A lookup yields zero or one coordinate pair.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mobility-sharing/backend/internal/domain"
)

// NominatimClient queries a Nominatim-compatible /search endpoint.
type NominatimClient struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

// NewNominatimClient returns a client for endpoint (scheme and host, no
// trailing slash). Each lookup is bounded by timeout.
func NewNominatimClient(endpoint string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		endpoint:  strings.TrimRight(endpoint, "/"),
		userAgent: "mobility-sharing-backend",
		client:    &http.Client{Timeout: timeout},
	}
}

// Geocode returns the best match for address, or nil when there is none.
func (c *NominatimClient) Geocode(ctx context.Context, address string) (*domain.Coordinates, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode.NominatimClient.Geocode: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode.NominatimClient.Geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode.NominatimClient.Geocode: unexpected status %d", resp.StatusCode)
	}

	// Nominatim returns coordinates as strings.
	var out []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("geocode.NominatimClient.Geocode: decode: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(out[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode.NominatimClient.Geocode: lat: %w", err)
	}
	lon, err := strconv.ParseFloat(out[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode.NominatimClient.Geocode: lon: %w", err)
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lon}, nil
}

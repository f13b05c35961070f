// Package geocode resolves place names to observer coordinates using the
// Mapbox Geocoding API, with an in-memory LRU cache in front of it.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/observability"
)

// ErrNotFound is returned when the geocoding API has no match for a place.
var ErrNotFound = errors.New("place not found")

// Geocoder resolves a place name to observer coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (astro.Observer, error)
}

// Client implements Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode converts a place name to coordinates.
func (c *Client) Geocode(ctx context.Context, place string) (astro.Observer, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(place))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality"},
	}

	start := time.Now()
	obs, err := c.doRequest(ctx, u+"?"+params.Encode(), place)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrNotFound):
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return obs, err
}

func (c *Client) doRequest(ctx context.Context, fullURL, place string) (astro.Observer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return astro.Observer{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return astro.Observer{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return astro.Observer{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return astro.Observer{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return astro.Observer{}, ErrNotFound
	}

	f := mapboxResp.Features[0]
	if len(f.Center) != 2 {
		return astro.Observer{}, fmt.Errorf("mapbox feature %q has no center", f.PlaceName)
	}

	// Mapbox uses lon,lat order.
	obs := astro.Observer{Latitude: f.Center[1], Longitude: f.Center[0]}
	c.logger.Debug("geocoded place",
		"query", place,
		"place", f.PlaceName,
		"relevance", f.Relevance,
		"lat", obs.Latitude,
		"lon", obs.Longitude,
	)
	return obs, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

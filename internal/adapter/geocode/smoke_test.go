//go:build mapbox

package geocode

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/moonsight/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/geocode/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_Geocode(t *testing.T) {
	c := smokeClient(t)

	obs, err := c.Geocode(context.Background(), "Mecca")
	require.NoError(t, err)

	assert.InDelta(t, 21.4, obs.Latitude, 0.3, "lat should be near Mecca")
	assert.InDelta(t, 39.8, obs.Longitude, 0.3, "lon should be near Mecca")
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedGeocoder(c, 10, observability.NewMetricsForTesting())

	// First call: cache miss, real API call.
	r1, err := cached.Geocode(context.Background(), "Jakarta")
	require.NoError(t, err)
	assert.InDelta(t, -6.2, r1.Latitude, 0.3)

	// Second call: cache hit, no API call.
	r2, err := cached.Geocode(context.Background(), "Jakarta")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

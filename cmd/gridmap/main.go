// Command gridmap scans the whole lattice for one evening and writes a world
// visibility map as a JSON artifact, for plotting crescent sighting zones or
// feeding test fixtures.
//
// Usage:
//
//	go run ./cmd/gridmap -date 2026-03-20 -out data/gridmap_20260320.json
//	go run ./cmd/gridmap -date 2026-03-20 -anchor-lat 21.42 -anchor-lon 39.83 \
//	  -out data/gridmap_20260320_mecca.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/engine"
	"github.com/couchcryptid/moonsight/internal/ephem"
	"github.com/couchcryptid/moonsight/internal/grid"
	"github.com/couchcryptid/moonsight/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dateStr := flag.String("date", "", "evening to scan, YYYY-MM-DD")
	out := flag.String("out", "", "output path for the JSON artifact")
	anchorLat := flag.Float64("anchor-lat", math.NaN(), "anchor latitude for shared-night overlap (optional)")
	anchorLon := flag.Float64("anchor-lon", math.NaN(), "anchor longitude for shared-night overlap (optional)")
	parallelism := flag.Int("parallelism", 0, "grid search workers (0 = derive from CPUs)")
	flag.Parse()

	if *dateStr == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -date, -out")
	}
	date, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		return fmt.Errorf("invalid -date %q, want YYYY-MM-DD", *dateStr)
	}

	var anchor *astro.Observer
	switch {
	case math.IsNaN(*anchorLat) && math.IsNaN(*anchorLon):
		// No anchor; cells carry no shared-night overlap.
	case math.IsNaN(*anchorLat) || math.IsNaN(*anchorLon):
		return fmt.Errorf("-anchor-lat and -anchor-lon must be provided together")
	default:
		anchor = &astro.Observer{Latitude: *anchorLat, Longitude: *anchorLon}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	eng := engine.New(ephem.New(), astro.AstralSunEvents{}, logger, observability.NewMetrics(), *parallelism)

	log.Printf("scanning %d cells for %s", grid.Rows*grid.Cols, date.Format("2006-01-02"))
	started := time.Now()

	cells, err := eng.FullGrid(context.Background(), date, anchor)
	if err != nil {
		return fmt.Errorf("grid scan: %w", err)
	}
	log.Printf("scan finished in %s", time.Since(started).Round(time.Second))

	artifact := buildArtifact(date, anchor, cells)
	if err := writeJSON(*out, artifact); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	log.Printf("wrote artifact: %s", *out)

	printStats(cells)
	return nil
}

// --- artifact schema ---

type gridArtifact struct {
	Date        string     `json:"date"`
	GeneratedAt string     `json:"generated_at"`
	AnchorLat   *float64   `json:"anchor_lat,omitempty"`
	AnchorLon   *float64   `json:"anchor_lon,omitempty"`
	Cells       []cellJSON `json:"cells"`
}

type cellJSON struct {
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	Classification string   `json:"classification"`
	V              *float64 `json:"v"`
	SharedMinutes  *float64 `json:"shared_minutes,omitempty"`
}

func buildArtifact(date time.Time, anchor *astro.Observer, cells []grid.Cell) gridArtifact {
	artifact := gridArtifact{
		Date:        date.Format("2006-01-02"),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Cells:       make([]cellJSON, 0, len(cells)),
	}
	if anchor != nil {
		artifact.AnchorLat = &anchor.Latitude
		artifact.AnchorLon = &anchor.Longitude
	}
	for i := range cells {
		c := &cells[i]
		cell := cellJSON{
			Lat:            c.Observer.Latitude,
			Lon:            c.Observer.Longitude,
			Classification: c.Visibility.Classification.String(),
		}
		if !math.IsNaN(c.Visibility.V) {
			v := c.Visibility.V
			cell.V = &v
		}
		if c.Shared != nil && c.Shared.Overlaps {
			m := c.Shared.OverlapMinutes
			cell.SharedMinutes = &m
		}
		artifact.Cells = append(artifact.Cells, cell)
	}
	return artifact
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(cells []grid.Cell) {
	classCounts := map[string]int{}
	var visible, nightDefined, sharing int
	for i := range cells {
		c := &cells[i]
		classCounts[c.Visibility.Classification.String()]++
		if c.Visibility.Classification.Visible() {
			visible++
		}
		if c.NightDefined {
			nightDefined++
		}
		if c.Shared != nil && c.Shared.Overlaps {
			sharing++
		}
	}

	fmt.Println("\n=== Grid stats ===")
	fmt.Printf("Total cells: %d\n", len(cells))
	for _, name := range []string{"easily_visible", "visible_perfect_conditions", "visible_optical_aid", "not_visible", "impossible", "undetermined"} {
		fmt.Printf("  %-28s %d\n", name, classCounts[name])
	}
	fmt.Printf("Visible (any tier): %d\n", visible)
	fmt.Printf("Night window defined: %d\n", nightDefined)
	if sharing > 0 {
		fmt.Printf("Sharing night with anchor: %d\n", sharing)
	}
}

// Package grid scans a fixed global lattice for crescent sightings,
// fanning the work out over a bounded pool of workers.
//
// The lattice is 2 degrees by 2 degrees with cell centers offset one
// degree from the even grid lines, so no cell sits on a pole, the
// equator, or the antimeridian. Latitude is clamped to the +/-59
// degree band; beyond it polar day and night make evening crescent
// sightings meaningless for month reckoning.
package grid

import "github.com/couchcryptid/moonsight/internal/astro"

// Lattice dimensions. Rows spans latitude centers -59..59, Cols spans
// longitude centers -179..179, both in 2 degree steps.
const (
	Rows = 60
	Cols = 180
)

const (
	cellSizeDeg    = 2.0
	firstLatCenter = -59.0
	firstLonCenter = -179.0
)

// CellObserver returns the cell center at the given lattice position.
// Row 0 is the southernmost band, column 0 the westernmost sweep.
func CellObserver(row, col int) astro.Observer {
	return astro.Observer{
		Latitude:  firstLatCenter + float64(row)*cellSizeDeg,
		Longitude: firstLonCenter + float64(col)*cellSizeDeg,
	}
}

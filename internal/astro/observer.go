package astro

import (
	"fmt"
	"math"
	"time"
)

// Observer is a point on Earth. Latitude is degrees north in [-90, 90],
// longitude degrees east, normalized to [-180, 180).
type Observer struct {
	Latitude  float64
	Longitude float64
}

// Normalized returns the observer with its longitude mapped into [-180, 180).
func (o Observer) Normalized() Observer {
	o.Longitude = NormalizeLongitude(o.Longitude)
	return o
}

func (o Observer) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", o.Latitude, o.Longitude)
}

// NormalizeLongitude maps a longitude into [-180, 180). +180 maps to -180 so
// the antimeridian is represented exactly once.
func NormalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// LongitudeZone returns the fixed zone used to interpret a calendar date as a
// local evening at the given longitude: round(longitude/15) hours, rounding
// half away from zero (-7.5° is -1h, not 0h). It is derived purely from
// geometry and is not a civil timezone.
func LongitudeZone(lon float64) *time.Location {
	hours := int(math.Round(NormalizeLongitude(lon) / 15))
	return time.FixedZone(fmt.Sprintf("UTC%+03d", hours), hours*3600)
}

// LocalMidnight re-anchors t's calendar date to midnight in the
// longitude-derived zone.
func LocalMidnight(t time.Time, lon float64) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, LongitudeZone(lon))
}

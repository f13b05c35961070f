package astro

import "time"

// Body selects the target of an ephemeris query.
type Body int

const (
	Sun Body = iota
	Moon
)

func (b Body) String() string {
	switch b {
	case Sun:
		return "sun"
	case Moon:
		return "moon"
	default:
		return "unknown"
	}
}

// SearchDirection selects which horizon crossing a rise/set search looks for.
type SearchDirection int

const (
	Rising SearchDirection = iota
	Setting
)

func (d SearchDirection) String() string {
	if d == Rising {
		return "rising"
	}
	return "setting"
}

// KmPerAU is the IAU 2012 astronomical unit in kilometres.
const KmPerAU = 1.495978707e8

// EarthEquatorialRadiusKm is used to derive the lunar horizontal parallax.
const EarthEquatorialRadiusKm = 6378.14

// Ephemeris supplies the astronomical queries the engine consumes. All search
// methods report found-or-not rather than erroring: an absent event within the
// window is an expected outcome (polar day, moon below horizon for days), not
// a fault. Implementations must be reentrant; the engine calls them from many
// goroutines at once.
type Ephemeris interface {
	// SearchRiseSet finds the next horizon crossing of body in the given
	// direction, starting at start and scanning at most window forward.
	SearchRiseSet(body Body, obs Observer, dir SearchDirection, start time.Time, window time.Duration) (time.Time, bool)

	// SearchMoonPhase finds the next instant the Sun-Moon ecliptic longitude
	// difference equals angleDeg (0 = new moon), within window of start.
	SearchMoonPhase(angleDeg float64, start time.Time, window time.Duration) (time.Time, bool)

	// Altitude returns the topocentric airless altitude of body in degrees.
	Altitude(body Body, obs Observer, t time.Time) float64

	// Elongation returns the geocentric Sun-Moon angular separation in degrees.
	Elongation(t time.Time) float64

	// Distance returns the geocentric distance of body in astronomical units.
	Distance(body Body, t time.Time) float64
}

// SunEvents supplies the solar day events night windows are built from. date
// carries the calendar day to solve for (callers pass local noon to keep the
// day unambiguous). Implementations return an error when the event does not
// occur on that day, as happens at polar latitudes.
type SunEvents interface {
	Sunset(obs Observer, date time.Time) (time.Time, error)
	Sunrise(obs Observer, date time.Time) (time.Time, error)
	// AstronomicalDawn is the morning instant the Sun rises through -18°.
	AstronomicalDawn(obs Observer, date time.Time) (time.Time, error)
}

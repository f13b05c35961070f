package astro

import "time"

// Night windows longer than maxNightSpan mean the twilight search latched
// onto the wrong day's events; such windows are replaced by a synthetic
// 12-hour night and flagged approximate.
const (
	maxNightSpan       = 20 * time.Hour
	syntheticNightSpan = 12 * time.Hour
)

// NightWindow is the interval an observer's night spans for one evening:
// sunset up to (but excluding) the end of astronomical darkness.
type NightWindow struct {
	Start time.Time
	End   time.Time

	// Approximate marks a synthetic window substituted after the twilight
	// search failed the sanity check.
	Approximate bool
}

// Duration is the window length.
func (w NightWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// ComputeNightWindow builds the night window for the local evening of date's
// calendar day. knownSunset, when non-zero, is reused instead of solving for
// sunset again (the geometry module has usually just computed it).
//
// The end of the window is astronomical dawn: the first instant after sunset
// the Sun reaches -18 degrees rising. A dawn at or after the next sunrise
// belongs to the following night and is rejected. Fallbacks, in order: the
// next sunrise when the sky never reaches astronomical darkness, and no
// window at all when there is no next sunrise either (polar day/night), in
// which case the second return is false and the location is excluded from
// shared-night reasoning for the date.
func ComputeNightWindow(events SunEvents, obs Observer, date time.Time, knownSunset time.Time) (NightWindow, bool) {
	obs = obs.Normalized()
	noon := LocalMidnight(date, obs.Longitude).Add(12 * time.Hour)

	sunset := knownSunset
	if sunset.IsZero() {
		s, err := events.Sunset(obs, noon)
		if err != nil {
			return NightWindow{}, false
		}
		sunset = s
	}

	nextNoon := noon.AddDate(0, 0, 1)
	dawn, dawnErr := events.AstronomicalDawn(obs, nextNoon)
	sunrise, riseErr := events.Sunrise(obs, nextNoon)

	var end time.Time
	switch {
	case dawnErr == nil && dawn.After(sunset) && (riseErr != nil || dawn.Before(sunrise)):
		end = dawn
	case riseErr == nil && sunrise.After(sunset):
		end = sunrise
	default:
		return NightWindow{}, false
	}

	w := NightWindow{Start: sunset, End: end}
	if w.Duration() > maxNightSpan {
		w.End = sunset.Add(syntheticNightSpan)
		w.Approximate = true
	}
	return w, true
}

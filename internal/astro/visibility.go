package astro

import (
	"math"
	"time"
)

// Search windows for the geometry sequence. Sunset is sought within one day
// of local noon, moonset within 48h of sunset (a young crescent can set well
// after the following midnight at high latitudes), and the sunrise bounding
// the conjunction rule within one day of sunset.
const (
	sunsetSearchWindow  = 24 * time.Hour
	moonsetSearchWindow = 48 * time.Hour
	sunriseSearchWindow = 24 * time.Hour
)

// moonSemidiameterRatio relates the lunar semidiameter to the equatorial
// horizontal parallax (Meeus, Astronomical Algorithms, ch. 55: s = 0.272481 π).
const moonSemidiameterRatio = 0.272481

// VisibilityResult is the outcome of classifying one observer and evening.
// Fields below Classification are populated as far as the geometry sequence
// got: an Undetermined result for a missing sunset carries nothing else, while
// a graded result carries the full set. V is NaN whenever the optical
// criterion was never evaluated.
type VisibilityResult struct {
	Classification Classification

	// V is the Odeh criterion value, ARCV - L(W).
	V float64

	Sunset     time.Time
	Moonset    time.Time
	LagMinutes float64

	// BestTime is sunset + 4/9 of the lag, the instant the crescent contrast
	// peaks and at which ARCV and W are evaluated.
	BestTime      time.Time
	ARCV          float64
	CrescentWidth float64

	// Conjunction echoes the conjunction passed in (zero when none was).
	// ConjunctionTriggered marks that it fell between sunset and the next
	// sunrise and forced the Impossible classification.
	Conjunction          time.Time
	ConjunctionTriggered bool

	// Reason is a human-readable explanation for Undetermined and Impossible
	// outcomes, empty for graded classifications.
	Reason string
}

// ClassifyVisibility grades the lunar crescent for the local evening of
// date's calendar day at obs. conjunction, when non-zero, is the new-moon
// instant relevant to the evening; callers compute it once per search day
// because it is expensive and identical for every observer.
//
// The function never fails: unresolvable geometry yields Undetermined with a
// reason, and callers treat Undetermined and Impossible alike as "not
// directly visible".
func ClassifyVisibility(eph Ephemeris, obs Observer, date time.Time, conjunction time.Time) VisibilityResult {
	obs = obs.Normalized()
	noon := LocalMidnight(date, obs.Longitude).Add(12 * time.Hour)

	res := VisibilityResult{
		Classification: Undetermined,
		V:              math.NaN(),
		Conjunction:    conjunction,
	}

	sunset, ok := eph.SearchRiseSet(Sun, obs, Setting, noon, sunsetSearchWindow)
	if !ok {
		res.Reason = "no sunset within search window"
		return res
	}
	res.Sunset = sunset

	moonset, ok := eph.SearchRiseSet(Moon, obs, Setting, sunset, moonsetSearchWindow)
	if !ok {
		res.Reason = "no moonset within 48h of sunset"
		return res
	}
	res.Moonset = moonset

	lag := moonset.Sub(sunset)
	res.LagMinutes = lag.Minutes()
	if lag <= 0 {
		res.Classification = Impossible
		res.Reason = "moon sets before or at sunset"
		return res
	}

	// A conjunction inside the night means the crescent does not exist yet
	// that evening, however favourable the geometry reads. Checked before the
	// optical criterion.
	if !conjunction.IsZero() {
		sunrise, ok := eph.SearchRiseSet(Sun, obs, Rising, sunset, sunriseSearchWindow)
		if ok && conjunction.After(sunset) && conjunction.Before(sunrise) {
			res.Classification = Impossible
			res.ConjunctionTriggered = true
			res.Reason = "conjunction occurs after sunset"
			return res
		}
	}

	best := sunset.Add(lag * 4 / 9)
	res.BestTime = best

	res.ARCV = eph.Altitude(Moon, obs, best) - eph.Altitude(Sun, obs, best)

	distKm := eph.Distance(Moon, best) * KmPerAU
	parallax := math.Asin(EarthEquatorialRadiusKm / distKm)
	semidiameter := moonSemidiameterRatio * parallax * (180 / math.Pi) * 60

	elongation := eph.Elongation(best)
	res.CrescentWidth = semidiameter * (1 - math.Cos(elongation*(math.Pi/180)))

	res.V = res.ARCV - odehLimit(res.CrescentWidth)
	res.Classification = ClassifyV(res.V)
	return res
}

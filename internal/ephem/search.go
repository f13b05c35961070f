package ephem

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonphase"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/solar"

	"github.com/couchcryptid/moonsight/internal/astro"
)

const (
	// riseSetStep samples coarsely for a sign change before bisecting. Five
	// minutes cannot skip a horizon crossing at the latitudes the engine
	// scans.
	riseSetStep = 5 * time.Minute
	// phaseStep samples the Sun-Moon longitude difference, which moves about
	// 12° per day.
	phaseStep = 6 * time.Hour

	bisectTolerance = time.Second

	// moonphase.New snaps to the nearest mean lunation, so probing in
	// half-synodic steps visits every lunation near the search window.
	newMoonProbeStep = 15 * 24 * time.Hour
)

// SearchRiseSet finds the next crossing of the body's standard rise/set
// altitude in the given direction, scanning at most window past start.
func (p *Provider) SearchRiseSet(body astro.Body, obs astro.Observer, dir astro.SearchDirection, start time.Time, window time.Duration) (time.Time, bool) {
	obs = obs.Normalized()
	target := p.standardAltitude(body, start)
	f := func(t time.Time) float64 { return p.Altitude(body, obs, t) - target }

	crosses := func(prev, cur float64) bool {
		if dir == astro.Rising {
			return prev < 0 && cur >= 0
		}
		return prev > 0 && cur <= 0
	}

	end := start.Add(window)
	prevT := start
	prev := f(prevT)
	for t := start.Add(riseSetStep); ; t = t.Add(riseSetStep) {
		if t.After(end) {
			t = end
		}
		cur := f(t)
		if crosses(prev, cur) {
			return bisect(f, prevT, t, prev), true
		}
		if !t.Before(end) {
			return time.Time{}, false
		}
		prevT, prev = t, cur
	}
}

// SearchMoonPhase finds the next instant the Sun-Moon ecliptic longitude
// difference reaches angleDeg. Angle 0 (conjunction) goes through the Meeus
// mean-lunation series directly; other angles fall back to a sampled search.
func (p *Provider) SearchMoonPhase(angleDeg float64, start time.Time, window time.Duration) (time.Time, bool) {
	if angleDeg == 0 {
		return p.searchNewMoon(start, window)
	}
	return p.searchPhaseCrossing(angleDeg, start, window)
}

func (p *Provider) searchNewMoon(start time.Time, window time.Duration) (time.Time, bool) {
	end := start.Add(window)
	for probe := start.Add(-newMoonProbeStep); probe.Before(end.Add(newMoonProbeStep)); probe = probe.Add(newMoonProbeStep) {
		jde := moonphase.New(base.JDEToJulianYear(julian.TimeToJD(probe.UTC())))
		t := julian.JDToTime(jde).UTC()
		if t.After(start) && !t.After(end) {
			return t, true
		}
	}
	return time.Time{}, false
}

// phaseLongitude is the Sun-to-Moon apparent ecliptic longitude difference in
// [0, 360).
func (p *Provider) phaseLongitude(jd float64) float64 {
	λm, _, _ := moonposition.Position(jd)
	ε := nutation.MeanObliquity(jd)
	αs, δs := solar.ApparentEquatorial(jd)
	λs, _ := coord.EqToEcl(αs, δs, ε.Sin(), ε.Cos())

	d := math.Mod(λm.Deg()-λs.Deg(), 360)
	if d < 0 {
		d += 360
	}
	return d
}

func (p *Provider) searchPhaseCrossing(angleDeg float64, start time.Time, window time.Duration) (time.Time, bool) {
	g := func(t time.Time) float64 {
		d := p.phaseLongitude(julian.TimeToJD(t.UTC())) - angleDeg
		return math.Mod(d+540, 360) - 180 // wrap to [-180, 180)
	}

	end := start.Add(window)
	prevT := start
	prev := g(prevT)
	for t := start.Add(phaseStep); ; t = t.Add(phaseStep) {
		if t.After(end) {
			t = end
		}
		cur := g(t)
		// Upward zero crossing; the gap guard rejects the ±180 seam jump.
		if prev < 0 && cur >= 0 && cur-prev < 180 {
			return bisect(g, prevT, t, prev), true
		}
		if !t.Before(end) {
			return time.Time{}, false
		}
		prevT, prev = t, cur
	}
}

// bisect narrows a bracketed crossing to within bisectTolerance. fLo is f's
// value at lo; the returned instant is the bracket edge on which the crossing
// condition holds.
func bisect(f func(time.Time) float64, lo, hi time.Time, fLo float64) time.Time {
	for hi.Sub(lo) > bisectTolerance {
		mid := lo.Add(hi.Sub(lo) / 2)
		fMid := f(mid)
		if (fLo < 0) == (fMid < 0) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return hi
}

// Package ephem implements the engine's ephemeris queries on the soniakeys
// Meeus routines: topocentric positions, rise/set and phase searches, and the
// geocentric quantities the crescent criterion consumes.
package ephem

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/parallax"
	"github.com/soniakeys/meeus/v3/rise"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/couchcryptid/moonsight/internal/astro"
)

// Provider satisfies astro.Ephemeris. It is stateless and safe for
// concurrent use.
type Provider struct{}

func New() *Provider {
	return &Provider{}
}

// Altitude returns the topocentric airless altitude of body in degrees.
// Meeus counts geographic longitude positive westward, so the observer's
// east-positive longitude is negated at this boundary.
func (p *Provider) Altitude(body astro.Body, obs astro.Observer, t time.Time) float64 {
	obs = obs.Normalized()
	jd := julian.TimeToJD(t.UTC())

	α, δ, Δ := p.equatorial(body, jd)

	φ := unit.AngleFromDeg(obs.Latitude)
	ψ := unit.AngleFromDeg(-obs.Longitude)
	ρs, ρc := globe.Earth76.ParallaxConstants(φ, 0)
	αʹ, δʹ := parallax.Topocentric(α, δ, Δ, ρs, ρc, ψ, jd)

	_, h := coord.EqToHz(αʹ, δʹ, φ, ψ, sidereal.Apparent(jd))
	return h.Deg()
}

// Elongation returns the geocentric Sun-Moon angular separation in degrees.
func (p *Provider) Elongation(t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())
	αs, δs, _ := p.equatorial(astro.Sun, jd)
	αm, δm, _ := p.equatorial(astro.Moon, jd)

	cosSep := δs.Sin()*δm.Sin() + δs.Cos()*δm.Cos()*math.Cos(αs.Rad()-αm.Rad())
	return math.Acos(math.Max(-1, math.Min(1, cosSep))) * 180 / math.Pi
}

// Distance returns the geocentric distance of body in AU.
func (p *Provider) Distance(body astro.Body, t time.Time) float64 {
	_, _, Δ := p.equatorial(body, julian.TimeToJD(t.UTC()))
	return Δ
}

// equatorial returns apparent right ascension, declination and the distance
// in AU for body at jd.
func (p *Provider) equatorial(body astro.Body, jd float64) (unit.RA, unit.Angle, float64) {
	if body == astro.Sun {
		α, δ := solar.ApparentEquatorial(jd)
		return α, δ, solar.Radius(base.J2000Century(jd))
	}
	λ, β, Δkm := moonposition.Position(jd)
	ε := nutation.MeanObliquity(jd)
	α, δ := coord.EclToEq(λ, β, ε.Sin(), ε.Cos())
	return α, δ, Δkm / astro.KmPerAU
}

// standardAltitude is the geometric altitude of a body's center at apparent
// rise or set: refraction of 34' plus the body's semidiameter. The solar
// value is the conventional -50'; the lunar one varies with distance.
func (p *Provider) standardAltitude(body astro.Body, t time.Time) float64 {
	if body == astro.Sun {
		return rise.Stdh0Solar.Deg()
	}
	Δkm := p.Distance(astro.Moon, t) * astro.KmPerAU
	π := math.Asin(astro.EarthEquatorialRadiusKm / Δkm)
	semidiameter := 0.272481 * π * 180 / math.Pi
	return rise.Stdh0Stellar.Deg() - semidiameter
}

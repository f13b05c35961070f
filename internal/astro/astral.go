package astro

import (
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// AstralSunEvents implements SunEvents on the astral library. Astral reports
// polar conditions (sun never crossing the requested altitude on the given
// day) as errors, which is exactly the signal the night-window fallback chain
// consumes.
type AstralSunEvents struct{}

func (AstralSunEvents) Sunset(obs Observer, date time.Time) (time.Time, error) {
	return astral.Sunset(astralObserver(obs), date)
}

func (AstralSunEvents) Sunrise(obs Observer, date time.Time) (time.Time, error) {
	return astral.Sunrise(astralObserver(obs), date)
}

func (AstralSunEvents) AstronomicalDawn(obs Observer, date time.Time) (time.Time, error) {
	return astral.Dawn(astralObserver(obs), date, 18)
}

func astralObserver(obs Observer) astral.Observer {
	return astral.Observer{Latitude: obs.Latitude, Longitude: obs.Longitude}
}

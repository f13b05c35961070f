// Package engine composes the geometry, grid, and calendar components behind
// a single facade consumed by the HTTP API and the command line tools.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/calendar"
	"github.com/couchcryptid/moonsight/internal/grid"
	"github.com/couchcryptid/moonsight/internal/observability"
)

// Conjunction discovery bounds. A new moon more than two days from the
// requested evening can never fall inside its night, so a four day window
// centred on the date catches every conjunction that matters.
const (
	conjunctionReach = 2 * 24 * time.Hour
	conjunctionSpan  = 4 * 24 * time.Hour
)

// Engine answers visibility, night-window, grid, and calendar requests. It
// holds no state across requests beyond the readiness flag.
type Engine struct {
	eph         astro.Ephemeris
	events      astro.SunEvents
	scheduler   *grid.Scheduler
	assembler   *calendar.Assembler
	logger      *slog.Logger
	metrics     *observability.Metrics
	parallelism int
	ready       atomic.Bool
}

// New wires an Engine from its externally configured collaborators.
// parallelism caps grid workers; zero sizes the pool from the host.
func New(eph astro.Ephemeris, events astro.SunEvents, logger *slog.Logger, metrics *observability.Metrics, parallelism int) *Engine {
	scheduler := grid.NewScheduler(eph, events, logger, metrics)
	return &Engine{
		eph:         eph,
		events:      events,
		scheduler:   scheduler,
		assembler:   calendar.NewAssembler(eph, events, scheduler, logger, metrics, parallelism),
		logger:      logger,
		metrics:     metrics,
		parallelism: parallelism,
	}
}

// SelfCheck verifies the ephemeris answers the two query families everything
// else is built from, then marks the engine ready. Run once at startup.
func (e *Engine) SelfCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now()

	if _, ok := e.eph.SearchMoonPhase(0, now.AddDate(0, 0, -45), 50*24*time.Hour); !ok {
		return errors.New("self-check: no new moon found in the last 45 days")
	}
	probe := astro.Observer{Latitude: 0, Longitude: 0}
	if _, ok := e.eph.SearchRiseSet(astro.Sun, probe, astro.Setting, now, 48*time.Hour); !ok {
		return errors.New("self-check: no equatorial sunset found")
	}

	e.ready.Store(true)
	e.logger.Info("engine ready")
	return nil
}

// CheckReadiness returns nil once the startup self-check has passed.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine self-check has not completed")
	}
	return nil
}

// Visibility classifies the evening of date at obs, discovering the relevant
// conjunction automatically.
func (e *Engine) Visibility(ctx context.Context, obs astro.Observer, date time.Time) (astro.VisibilityResult, error) {
	if err := ctx.Err(); err != nil {
		return astro.VisibilityResult{}, err
	}
	res := astro.ClassifyVisibility(e.eph, obs, date, e.conjunctionNear(date))
	e.metrics.VisibilityChecks.WithLabelValues(res.Classification.String()).Inc()
	e.logger.Info("visibility classified",
		"observer", obs.String(),
		"date", date.Format("2006-01-02"),
		"classification", res.Classification.String(),
	)
	return res, nil
}

// Night computes the night window for the evening of date at obs. The second
// return is false when the window is undefined (polar day or night).
func (e *Engine) Night(obs astro.Observer, date time.Time) (astro.NightWindow, bool) {
	return astro.ComputeNightWindow(e.events, obs, date, time.Time{})
}

// FullGrid classifies the whole lattice for the evening of date, optionally
// relating each cell's night to anchor's.
func (e *Engine) FullGrid(ctx context.Context, date time.Time, anchor *astro.Observer) ([]grid.Cell, error) {
	return e.scheduler.FullGrid(ctx, date, e.conjunctionNear(date), anchor, e.parallelism)
}

// Calendar assembles months consecutive lunar months covering start, as seen
// from obs. See calendar.Assembler.Calendar for the contract.
func (e *Engine) Calendar(ctx context.Context, obs astro.Observer, start time.Time, months int, progress func(percent float64)) (*calendar.CalendarResult, error) {
	return e.assembler.Calendar(ctx, obs, start, months, progress)
}

// conjunctionNear finds a new moon within two days of date, or returns the
// zero time when there is none (most evenings).
func (e *Engine) conjunctionNear(date time.Time) time.Time {
	if c, ok := e.eph.SearchMoonPhase(0, date.Add(-conjunctionReach), conjunctionSpan); ok {
		return c
	}
	return time.Time{}
}

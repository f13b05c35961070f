// Package calendar turns lunar conjunctions into concrete Islamic month
// boundaries for a target location. Night 1 of a month is the first evening
// after the conjunction on which the crescent is visible at the location
// itself or, failing that, somewhere that shares the night with it.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/grid"
	"github.com/couchcryptid/moonsight/internal/observability"
)

// maxNight1Days caps the day-by-day search. A real lunar month is at most 30
// days; running 35 days past a conjunction without a sighting means the
// inputs or the ephemeris are broken, not that the month is late.
const maxNight1Days = 35

// Conjunction search pacing. Consecutive new moons are one synodic month
// (about 29.53 days) apart, so a 45 day window always contains the next one
// and a 60 day lookback always contains the previous one.
const (
	conjunctionWindow   = 45 * 24 * time.Hour
	conjunctionLookback = 60 * 24 * time.Hour
)

// ErrExhausted reports that the Night 1 search hit its day ceiling without a
// sighting, direct or inherited. Callers surface it as a hard failure.
var ErrExhausted = errors.New("night 1 not found within 35 days of conjunction")

// Night1Method records how a month start was established.
type Night1Method int

const (
	// Direct means the crescent was visible at the target location itself.
	Direct Night1Method = iota
	// SharedNightInheritance means the sighting came from a grid cell
	// sharing the night with the target.
	SharedNightInheritance
)

func (m Night1Method) String() string {
	if m == Direct {
		return "direct"
	}
	return "shared_night"
}

// MarshalText implements encoding.TextMarshaler.
func (m Night1Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Night1Result is the outcome of one month-start search. Date is the local
// midnight of the found day; InheritedFrom holds the donor cells in grid scan
// order and is empty when the sighting was direct.
type Night1Result struct {
	Date          time.Time
	Method        Night1Method
	InheritedFrom []grid.Cell
}

// MonthDay is one night of a month, 1-based.
type MonthDay struct {
	Night int
	Date  time.Time
}

// MonthRecord is one assembled lunar month. Days spans Night1.Date up to but
// excluding the next month's Night 1 (or, for the final month of a batch, the
// next conjunction).
type MonthRecord struct {
	Name            string
	Conjunction     time.Time
	Night1          Night1Result
	NextConjunction time.Time
	Days            []MonthDay
}

// CalendarResult is a batch of consecutive months for one location.
type CalendarResult struct {
	Location    astro.Observer
	Months      []MonthRecord
	GeneratedAt time.Time
}

// GridSearcher is the slice of the grid scheduler the assembler consumes.
type GridSearcher interface {
	SearchShared(ctx context.Context, date, conjunction time.Time, target astro.NightWindow, parallelism int) ([]grid.Cell, error)
}

// Assembler runs Night 1 searches and batch calendar assembly.
type Assembler struct {
	eph         astro.Ephemeris
	events      astro.SunEvents
	search      GridSearcher
	logger      *slog.Logger
	metrics     *observability.Metrics
	parallelism int
}

// NewAssembler creates an Assembler. parallelism is passed through to the
// grid scheduler; zero lets it size the pool from the host.
func NewAssembler(eph astro.Ephemeris, events astro.SunEvents, search GridSearcher, logger *slog.Logger, metrics *observability.Metrics, parallelism int) *Assembler {
	return &Assembler{
		eph:         eph,
		events:      events,
		search:      search,
		logger:      logger,
		metrics:     metrics,
		parallelism: parallelism,
	}
}

// Night1 finds the first night of the lunar month beginning at conjunction,
// as observed from obs. Starting with the conjunction's own local day it
// checks up to maxNight1Days consecutive evenings: first the direct
// criterion, then a targeted grid search against the evening's own night
// window. Returns ErrExhausted when the ceiling is hit and the context error
// when cancelled mid-search.
func (a *Assembler) Night1(ctx context.Context, obs astro.Observer, conjunction time.Time) (Night1Result, error) {
	obs = obs.Normalized()
	first := astro.LocalMidnight(conjunction, obs.Longitude)

	a.logger.Info("night 1 search started",
		"observer", obs.String(),
		"conjunction", conjunction.Format(time.RFC3339),
	)

	for i := 0; i < maxNight1Days; i++ {
		if err := ctx.Err(); err != nil {
			return Night1Result{}, err
		}
		date := first.AddDate(0, 0, i)

		vis := astro.ClassifyVisibility(a.eph, obs, date, conjunction)
		if vis.Classification.Visible() {
			a.metrics.Night1Outcomes.WithLabelValues("direct").Inc()
			a.logger.Info("night 1 found",
				"date", date.Format("2006-01-02"),
				"method", Direct.String(),
				"days_searched", i+1,
			)
			return Night1Result{Date: date, Method: Direct}, nil
		}

		night, ok := astro.ComputeNightWindow(a.events, obs, date, vis.Sunset)
		if !ok {
			continue
		}
		donors, err := a.search.SearchShared(ctx, date, conjunction, night, a.parallelism)
		if err != nil {
			return Night1Result{}, err
		}
		if len(donors) > 0 {
			a.metrics.Night1Outcomes.WithLabelValues("inherited").Inc()
			a.logger.Info("night 1 found",
				"date", date.Format("2006-01-02"),
				"method", SharedNightInheritance.String(),
				"days_searched", i+1,
				"donor_cells", len(donors),
			)
			return Night1Result{Date: date, Method: SharedNightInheritance, InheritedFrom: donors}, nil
		}
	}

	a.metrics.Night1Outcomes.WithLabelValues("exhausted").Inc()
	a.logger.Error("night 1 search exhausted",
		"observer", obs.String(),
		"conjunction", conjunction.Format(time.RFC3339),
	)
	return Night1Result{}, ErrExhausted
}

// Calendar assembles months consecutive lunar months covering start, in two
// passes. Pass 1 walks conjunction to conjunction running Night 1 searches;
// pass 2 lays out each month's day sequence against the following month's
// Night 1 so the boundaries reflect observed sightings, not tabular
// arithmetic. progress, when non-nil, receives percentages in [0,100]; each
// pass contributes half. Cancellation is polled per month (and per day
// inside the Night 1 search) and returns a nil result with the context
// error.
func (a *Assembler) Calendar(ctx context.Context, obs astro.Observer, start time.Time, months int, progress func(percent float64)) (*CalendarResult, error) {
	if months <= 0 {
		return nil, fmt.Errorf("month count must be positive, got %d", months)
	}
	obs = obs.Normalized()
	requestID := uuid.NewString()
	began := time.Now()
	a.metrics.CalendarAssemblies.Inc()

	report := func(p float64) {
		if progress != nil {
			progress(p)
		}
	}

	conj, ok := a.previousConjunction(start)
	if !ok {
		return nil, errors.New("no lunar conjunction found near start date")
	}

	a.logger.Info("calendar assembly started",
		"request_id", requestID,
		"observer", obs.String(),
		"start", start.Format("2006-01-02"),
		"months", months,
	)

	type monthTuple struct {
		conjunction     time.Time
		night1          Night1Result
		nextConjunction time.Time
		name            string
	}

	tuples := make([]monthTuple, 0, months)
	for i := 0; i < months; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		night1, err := a.Night1(ctx, obs, conj)
		if err != nil {
			return nil, fmt.Errorf("month %d: %w", i+1, err)
		}
		next, ok := a.eph.SearchMoonPhase(0, conj.Add(time.Hour), conjunctionWindow)
		if !ok {
			return nil, fmt.Errorf("month %d: no conjunction follows %s", i+1, conj.Format(time.RFC3339))
		}
		tuples = append(tuples, monthTuple{
			conjunction:     conj,
			night1:          night1,
			nextConjunction: next,
			name:            FromGregorian(night1.Date.AddDate(0, 0, 14)).MonthName(),
		})
		report(float64(i+1) / float64(months) * 50)
		conj = next
	}

	records := make([]MonthRecord, 0, months)
	for i, tu := range tuples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		boundary := tu.nextConjunction
		if i+1 < len(tuples) {
			boundary = tuples[i+1].night1.Date
		}
		records = append(records, MonthRecord{
			Name:            tu.name,
			Conjunction:     tu.conjunction,
			Night1:          tu.night1,
			NextConjunction: tu.nextConjunction,
			Days:            daySequence(tu.night1.Date, boundary),
		})
		report(50 + float64(i+1)/float64(months)*50)
	}

	a.metrics.CalendarDuration.Observe(time.Since(began).Seconds())
	a.logger.Info("calendar assembly finished",
		"request_id", requestID,
		"observer", obs.String(),
		"months", len(records),
		"duration_ms", time.Since(began).Milliseconds(),
	)
	return &CalendarResult{
		Location:    obs,
		Months:      records,
		GeneratedAt: clock.Now(),
	}, nil
}

// previousConjunction finds the last new moon at or before t by walking
// forward from a lookback start until a search would land past t.
func (a *Assembler) previousConjunction(t time.Time) (time.Time, bool) {
	probe := t.Add(-conjunctionLookback)
	var last time.Time
	found := false
	for {
		c, ok := a.eph.SearchMoonPhase(0, probe, conjunctionWindow)
		if !ok || c.After(t) {
			return last, found
		}
		last, found = c, true
		probe = c.Add(time.Hour)
	}
}

// daySequence numbers the nights from night1 up to but excluding boundary.
func daySequence(night1, boundary time.Time) []MonthDay {
	var days []MonthDay
	for d, n := night1, 1; d.Before(boundary); d, n = d.AddDate(0, 0, 1), n+1 {
		days = append(days, MonthDay{Night: n, Date: d})
	}
	return days
}

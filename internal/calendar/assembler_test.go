package calendar_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/calendar"
	"github.com/couchcryptid/moonsight/internal/grid"
	"github.com/couchcryptid/moonsight/internal/observability"
)

// --- mocks ---

// calEphemeris scripts a tidy sky at longitude zero: sunset 18:00 UTC,
// moonset an hour later, sunrise 06:00, and synthetic new moons every 29.5
// days from conjEpoch. The crescent is sightable exactly on the evenings
// listed in visible.
type calEphemeris struct {
	conjEpoch time.Time
	visible   map[string]bool
}

const synodicStep = 708 * time.Hour // 29.5 days

func newCalEphemeris(visibleDates ...string) calEphemeris {
	e := calEphemeris{
		conjEpoch: time.Date(2026, time.January, 19, 10, 0, 0, 0, time.UTC),
		visible:   make(map[string]bool, len(visibleDates)),
	}
	for _, d := range visibleDates {
		e.visible[d] = true
	}
	return e
}

func (e calEphemeris) SearchRiseSet(body astro.Body, _ astro.Observer, dir astro.SearchDirection, start time.Time, _ time.Duration) (time.Time, bool) {
	switch {
	case body == astro.Sun && dir == astro.Setting:
		return nextDailyEvent(start, 18, 0), true
	case body == astro.Moon && dir == astro.Setting:
		return start.Add(time.Hour), true
	case body == astro.Sun && dir == astro.Rising:
		return nextDailyEvent(start, 6, 0), true
	}
	return time.Time{}, false
}

func (e calEphemeris) SearchMoonPhase(angleDeg float64, start time.Time, window time.Duration) (time.Time, bool) {
	if angleDeg != 0 {
		return time.Time{}, false
	}
	c := e.conjEpoch
	for !c.After(start) {
		c = c.Add(synodicStep)
	}
	if c.Sub(start) > window {
		return time.Time{}, false
	}
	return c, true
}

func (e calEphemeris) Altitude(body astro.Body, _ astro.Observer, t time.Time) float64 {
	if body == astro.Sun {
		return -4
	}
	if e.visible[t.UTC().Format("2006-01-02")] {
		return 12
	}
	return -20
}

func (e calEphemeris) Elongation(time.Time) float64 { return 20 }

func (e calEphemeris) Distance(body astro.Body, _ time.Time) float64 {
	if body == astro.Moon {
		return 0.00257
	}
	return 1
}

// nextDailyEvent returns the first hh:mm UTC at or after start.
func nextDailyEvent(start time.Time, hour, min int) time.Time {
	t := time.Date(start.Year(), start.Month(), start.Day(), hour, min, 0, 0, time.UTC)
	if t.Before(start) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

type calSunEvents struct{}

func (calSunEvents) Sunset(_ astro.Observer, d time.Time) (time.Time, error) {
	return time.Date(d.Year(), d.Month(), d.Day(), 18, 0, 0, 0, time.UTC), nil
}

func (calSunEvents) Sunrise(_ astro.Observer, d time.Time) (time.Time, error) {
	return time.Date(d.Year(), d.Month(), d.Day(), 6, 0, 0, 0, time.UTC), nil
}

func (calSunEvents) AstronomicalDawn(_ astro.Observer, d time.Time) (time.Time, error) {
	return time.Date(d.Year(), d.Month(), d.Day(), 4, 30, 0, 0, time.UTC), nil
}

// fakeSearcher scripts grid donors per candidate date.
type fakeSearcher struct {
	donors map[string][]grid.Cell
	calls  int
	err    error
}

func (f *fakeSearcher) SearchShared(_ context.Context, date, _ time.Time, _ astro.NightWindow, _ int) ([]grid.Cell, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.donors[date.UTC().Format("2006-01-02")], nil
}

// --- helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAssembler(eph calEphemeris, searcher *fakeSearcher) *calendar.Assembler {
	return calendar.NewAssembler(eph, calSunEvents{}, searcher, newTestLogger(), observability.NewMetricsForTesting(), 4)
}

var testObserver = astro.Observer{Latitude: 21.42, Longitude: 0}

// --- tests ---

func TestAssemblerNight1_Direct(t *testing.T) {
	searcher := &fakeSearcher{}
	a := newAssembler(newCalEphemeris("2026-03-21"), searcher)

	conjunction := time.Date(2026, time.March, 19, 10, 0, 0, 0, time.UTC)
	got, err := a.Night1(context.Background(), testObserver, conjunction)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-21", got.Date.Format("2006-01-02"))
	assert.Equal(t, calendar.Direct, got.Method)
	assert.Empty(t, got.InheritedFrom)
	assert.Equal(t, 2, searcher.calls, "the two failed evenings fall through to the grid")
}

func TestAssemblerNight1_SharedNightInheritance(t *testing.T) {
	donor := grid.Cell{
		Observer:     astro.Observer{Latitude: 21, Longitude: 15},
		NightDefined: true,
	}
	searcher := &fakeSearcher{donors: map[string][]grid.Cell{
		"2026-03-20": {donor},
	}}
	a := newAssembler(newCalEphemeris(), searcher)

	conjunction := time.Date(2026, time.March, 19, 10, 0, 0, 0, time.UTC)
	got, err := a.Night1(context.Background(), testObserver, conjunction)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-20", got.Date.Format("2006-01-02"))
	assert.Equal(t, calendar.SharedNightInheritance, got.Method)
	require.Len(t, got.InheritedFrom, 1)
	assert.Equal(t, donor, got.InheritedFrom[0])
	assert.Equal(t, 2, searcher.calls)
}

func TestAssemblerNight1_Exhausted(t *testing.T) {
	searcher := &fakeSearcher{}
	a := newAssembler(newCalEphemeris(), searcher)

	conjunction := time.Date(2026, time.March, 19, 10, 0, 0, 0, time.UTC)
	_, err := a.Night1(context.Background(), testObserver, conjunction)

	assert.ErrorIs(t, err, calendar.ErrExhausted)
	assert.Equal(t, 35, searcher.calls, "every day up to the ceiling is tried")
}

func TestAssemblerNight1_Cancelled(t *testing.T) {
	searcher := &fakeSearcher{}
	a := newAssembler(newCalEphemeris("2026-03-21"), searcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conjunction := time.Date(2026, time.March, 19, 10, 0, 0, 0, time.UTC)
	_, err := a.Night1(ctx, testObserver, conjunction)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, searcher.calls)
}

func TestAssemblerNight1_SearchErrorPropagates(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("broker unreachable")}
	a := newAssembler(newCalEphemeris(), searcher)

	conjunction := time.Date(2026, time.March, 19, 10, 0, 0, 0, time.UTC)
	_, err := a.Night1(context.Background(), testObserver, conjunction)

	assert.ErrorIs(t, err, searcher.err)
}

func TestAssemblerCalendar_TwoPassBoundaries(t *testing.T) {
	fixed := time.Date(2026, time.June, 20, 9, 0, 0, 0, time.UTC)
	calendar.SetClock(clockwork.NewFakeClockAt(fixed))
	defer calendar.SetClock(nil)

	// Three consecutive sightings, each a couple of days after its
	// conjunction (Mar 19, Apr 17, May 17).
	eph := newCalEphemeris("2026-03-21", "2026-04-20", "2026-05-19")
	a := newAssembler(eph, &fakeSearcher{})

	var progress []float64
	start := time.Date(2026, time.March, 25, 0, 0, 0, 0, time.UTC)
	res, err := a.Calendar(context.Background(), testObserver, start, 3, func(p float64) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Months, 3)

	assert.Equal(t, testObserver, res.Location)
	assert.True(t, res.GeneratedAt.Equal(fixed))

	m0, m1, m2 := res.Months[0], res.Months[1], res.Months[2]

	assert.Equal(t, "Shawwal", m0.Name)
	assert.Equal(t, "Dhu al-Qi'dah", m1.Name)
	assert.Equal(t, "Dhu al-Hijjah", m2.Name)

	assert.Equal(t, "2026-03-21", m0.Night1.Date.Format("2006-01-02"))
	assert.Equal(t, "2026-04-20", m1.Night1.Date.Format("2006-01-02"))
	assert.Equal(t, "2026-05-19", m2.Night1.Date.Format("2006-01-02"))

	// A month's days run from its own Night 1 up to, but not including,
	// the next month's Night 1; the final month closes on its next
	// conjunction instead.
	require.Len(t, m0.Days, 30)
	require.Len(t, m1.Days, 29)
	require.Len(t, m2.Days, 28)

	assert.Equal(t, 1, m0.Days[0].Night)
	assert.Equal(t, "2026-03-21", m0.Days[0].Date.Format("2006-01-02"))
	assert.Equal(t, 30, m0.Days[29].Night)
	assert.Equal(t, "2026-04-19", m0.Days[29].Date.Format("2006-01-02"))

	assert.Equal(t, "2026-04-20", m1.Days[0].Date.Format("2006-01-02"),
		"no gap: month 2 starts exactly on its Night 1")
	assert.Equal(t, "2026-05-18", m1.Days[28].Date.Format("2006-01-02"))

	assert.Equal(t, "2026-06-15", m2.Days[27].Date.Format("2006-01-02"),
		"final month runs to its own next conjunction")

	// Conjunction bookkeeping chains across months.
	assert.True(t, m0.NextConjunction.Equal(m1.Conjunction))
	assert.True(t, m1.NextConjunction.Equal(m2.Conjunction))

	// Each pass contributes half the progress, one report per month.
	require.Len(t, progress, 6)
	want := []float64{50.0 / 3, 100.0 / 3, 50, 50 + 50.0/3, 50 + 100.0/3, 100}
	for i, p := range progress {
		assert.InDelta(t, want[i], p, 0.01)
		if i > 0 {
			assert.GreaterOrEqual(t, p, progress[i-1])
		}
	}
}

func TestAssemblerCalendar_CancelledAfterFirstMonth(t *testing.T) {
	eph := newCalEphemeris("2026-03-21", "2026-04-20", "2026-05-19")
	a := newAssembler(eph, &fakeSearcher{})

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Date(2026, time.March, 25, 0, 0, 0, 0, time.UTC)
	res, err := a.Calendar(ctx, testObserver, start, 3, func(p float64) {
		if p >= 16 {
			cancel()
		}
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssemblerCalendar_ExhaustionIsAHardFailure(t *testing.T) {
	a := newAssembler(newCalEphemeris(), &fakeSearcher{})

	start := time.Date(2026, time.March, 25, 0, 0, 0, 0, time.UTC)
	res, err := a.Calendar(context.Background(), testObserver, start, 2, nil)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, calendar.ErrExhausted)
	assert.ErrorContains(t, err, "month 1")
}

func TestAssemblerCalendar_InvalidMonthCount(t *testing.T) {
	a := newAssembler(newCalEphemeris(), &fakeSearcher{})

	_, err := a.Calendar(context.Background(), testObserver, time.Now(), 0, nil)
	assert.ErrorContains(t, err, "month count")
}

func TestAssemblerCalendar_NoConjunctionNearStart(t *testing.T) {
	eph := newCalEphemeris()
	eph.conjEpoch = time.Date(2126, time.January, 1, 0, 0, 0, 0, time.UTC)
	a := newAssembler(eph, &fakeSearcher{})

	start := time.Date(2026, time.March, 25, 0, 0, 0, 0, time.UTC)
	_, err := a.Calendar(context.Background(), testObserver, start, 1, nil)

	assert.ErrorContains(t, err, "no lunar conjunction")
}

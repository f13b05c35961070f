package grid

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/observability"
)

// Worker count bounds for one scan.
const (
	minWorkers = 4
	maxWorkers = 16
)

// Cell is one classified lattice point. Night and Shared are only
// meaningful when NightDefined is true; Shared is nil unless the scan
// was given a window to compare against.
type Cell struct {
	Observer     astro.Observer
	Visibility   astro.VisibilityResult
	Night        astro.NightWindow
	NightDefined bool
	Shared       *astro.SharedNightResult
}

// Scheduler partitions the lattice into contiguous latitude bands and
// scans one band per worker. It is stateless across scans; the worker
// pool lives only for the duration of a single call.
type Scheduler struct {
	eph     astro.Ephemeris
	events  astro.SunEvents
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewScheduler creates a Scheduler with the given ephemeris, sun event
// source, and observability.
func NewScheduler(eph astro.Ephemeris, events astro.SunEvents, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{eph: eph, events: events, logger: logger, metrics: metrics}
}

// SearchShared scans the lattice for cells that could donate a sighting to
// the target night window: the cell's night must overlap the target's, its
// sunset must not come after the target's, and the crescent must be directly
// visible there. Matches are returned in band order; no ordering is
// guaranteed beyond that, and callers should treat the result as a set.
//
// Returns the context error if the scan was cancelled; partial results are
// discarded.
func (s *Scheduler) SearchShared(ctx context.Context, date, conjunction time.Time, target astro.NightWindow, parallelism int) ([]Cell, error) {
	workers := workerCount(parallelism)
	requestID := uuid.NewString()
	start := time.Now()

	s.logger.Info("grid search started",
		"request_id", requestID,
		"mode", "targeted",
		"date", date.Format("2006-01-02"),
		"workers", workers,
	)
	s.metrics.GridSearches.WithLabelValues("targeted").Inc()
	s.metrics.WorkerPoolSize.Set(float64(workers))
	defer s.metrics.WorkerPoolSize.Set(0)

	bands := make([][]Cell, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(band int) {
			defer wg.Done()
			defer s.recoverBand(requestID, band, &bands[band])
			bands[band] = s.scanBandTargeted(ctx, band, workers, date, conjunction, target)
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Info("grid search cancelled", "request_id", requestID, "mode", "targeted")
		return nil, err
	}

	var cells []Cell
	for _, band := range bands {
		cells = append(cells, band...)
	}

	elapsed := time.Since(start)
	s.metrics.GridSearchDuration.WithLabelValues("targeted").Observe(elapsed.Seconds())
	s.metrics.GridCellsMatched.Observe(float64(len(cells)))
	s.logger.Info("grid search finished",
		"request_id", requestID,
		"mode", "targeted",
		"matches", len(cells),
		"duration_ms", elapsed.Milliseconds(),
	)
	return cells, nil
}

// FullGrid classifies every lattice cell for map rendering: visibility and
// night window per cell, plus, when anchor is non-nil, each cell's
// shared-night relation to the anchor's window.
func (s *Scheduler) FullGrid(ctx context.Context, date, conjunction time.Time, anchor *astro.Observer, parallelism int) ([]Cell, error) {
	workers := workerCount(parallelism)
	requestID := uuid.NewString()
	start := time.Now()

	var anchorNight *astro.NightWindow
	if anchor != nil {
		if night, ok := astro.ComputeNightWindow(s.events, *anchor, date, time.Time{}); ok {
			anchorNight = &night
		}
	}

	s.logger.Info("grid search started",
		"request_id", requestID,
		"mode", "full",
		"date", date.Format("2006-01-02"),
		"workers", workers,
		"anchored", anchor != nil,
	)
	s.metrics.GridSearches.WithLabelValues("full").Inc()
	s.metrics.WorkerPoolSize.Set(float64(workers))
	defer s.metrics.WorkerPoolSize.Set(0)

	bands := make([][]Cell, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(band int) {
			defer wg.Done()
			defer s.recoverBand(requestID, band, &bands[band])
			bands[band] = s.scanBandFull(ctx, band, workers, date, conjunction, anchorNight)
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Info("grid search cancelled", "request_id", requestID, "mode", "full")
		return nil, err
	}

	var cells []Cell
	for _, band := range bands {
		cells = append(cells, band...)
	}

	elapsed := time.Since(start)
	s.metrics.GridSearchDuration.WithLabelValues("full").Observe(elapsed.Seconds())
	s.logger.Info("grid search finished",
		"request_id", requestID,
		"mode", "full",
		"cells", len(cells),
		"duration_ms", elapsed.Milliseconds(),
	)
	return cells, nil
}

// recoverBand converts a worker panic into an empty band so the other
// workers' results still aggregate.
func (s *Scheduler) recoverBand(requestID string, band int, out *[]Cell) {
	if r := recover(); r != nil {
		s.logger.Error("grid worker fault",
			"request_id", requestID,
			"band", band,
			"panic", r,
		)
		s.metrics.WorkerFaults.Inc()
		*out = nil
	}
}

// scanBandTargeted walks one latitude band, applying the cheap night-window
// and overlap filters before the expensive visibility classification.
func (s *Scheduler) scanBandTargeted(ctx context.Context, band, workers int, date, conjunction time.Time, target astro.NightWindow) []Cell {
	rowStart := band * Rows / workers
	rowEnd := (band + 1) * Rows / workers

	var matches []Cell
	for row := rowStart; row < rowEnd; row++ {
		for col := 0; col < Cols; col++ {
			if ctx.Err() != nil {
				return nil
			}
			s.metrics.GridCellsScanned.Inc()

			obs := CellObserver(row, col)
			night, ok := astro.ComputeNightWindow(s.events, obs, date, time.Time{})
			if !ok {
				continue
			}
			shared := astro.SharedNight(target, night)
			if !shared.Overlaps {
				continue
			}
			if !astro.EarlierOrSameNight(target, night) {
				continue
			}
			vis := astro.ClassifyVisibility(s.eph, obs, date, conjunction)
			if !vis.Classification.Visible() {
				continue
			}
			matches = append(matches, Cell{
				Observer:     obs,
				Visibility:   vis,
				Night:        night,
				NightDefined: true,
				Shared:       &shared,
			})
		}
	}
	return matches
}

// scanBandFull classifies every cell in one latitude band.
func (s *Scheduler) scanBandFull(ctx context.Context, band, workers int, date, conjunction time.Time, anchorNight *astro.NightWindow) []Cell {
	rowStart := band * Rows / workers
	rowEnd := (band + 1) * Rows / workers

	cells := make([]Cell, 0, (rowEnd-rowStart)*Cols)
	for row := rowStart; row < rowEnd; row++ {
		for col := 0; col < Cols; col++ {
			if ctx.Err() != nil {
				return nil
			}
			s.metrics.GridCellsScanned.Inc()

			obs := CellObserver(row, col)
			cell := Cell{Observer: obs}
			cell.Visibility = astro.ClassifyVisibility(s.eph, obs, date, conjunction)
			if night, ok := astro.ComputeNightWindow(s.events, obs, date, cell.Visibility.Sunset); ok {
				cell.Night = night
				cell.NightDefined = true
				if anchorNight != nil {
					shared := astro.SharedNight(*anchorNight, night)
					cell.Shared = &shared
				}
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

// workerCount clamps the requested parallelism to [minWorkers, maxWorkers],
// deriving it from the available CPUs when the request is zero.
func workerCount(requested int) int {
	n := requested
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n < minWorkers {
		n = minWorkers
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

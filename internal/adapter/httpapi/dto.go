package httpapi

import (
	"math"
	"time"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/calendar"
	"github.com/couchcryptid/moonsight/internal/grid"
)

// Wire representations. Domain values use NaN and zero times for "not
// computed"; on the wire those become JSON null, which encoding/json cannot
// do for raw floats.

type observerDTO struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type visibilityDTO struct {
	Classification       astro.Classification `json:"classification"`
	V                    *float64             `json:"v"`
	Sunset               *time.Time           `json:"sunset,omitempty"`
	Moonset              *time.Time           `json:"moonset,omitempty"`
	LagMinutes           float64              `json:"lag_minutes"`
	BestTime             *time.Time           `json:"best_time,omitempty"`
	ARCV                 float64              `json:"arcv"`
	CrescentWidth        float64              `json:"crescent_width_arcmin"`
	Conjunction          *time.Time           `json:"conjunction,omitempty"`
	ConjunctionTriggered bool                 `json:"conjunction_triggered"`
	Reason               string               `json:"reason,omitempty"`
}

type nightDTO struct {
	Start           time.Time `json:"night_start"`
	End             time.Time `json:"night_end"`
	DurationMinutes float64   `json:"duration_minutes"`
	Approximate     bool      `json:"approximate,omitempty"`
}

type sharedDTO struct {
	Overlaps       bool    `json:"overlaps"`
	OverlapMinutes float64 `json:"overlap_minutes"`
}

type gridCellDTO struct {
	Observer   observerDTO   `json:"observer"`
	Visibility visibilityDTO `json:"visibility"`
	Night      *nightDTO     `json:"night,omitempty"`
	Shared     *sharedDTO    `json:"shared,omitempty"`
}

type night1DTO struct {
	Date          string                `json:"date"`
	Method        calendar.Night1Method `json:"method"`
	InheritedFrom []gridCellDTO         `json:"inherited_from,omitempty"`
}

type monthDayDTO struct {
	Night int    `json:"night"`
	Date  string `json:"date"`
}

type monthDTO struct {
	Name            string        `json:"name"`
	Conjunction     time.Time     `json:"conjunction"`
	Night1          night1DTO     `json:"night1"`
	NextConjunction time.Time     `json:"next_conjunction"`
	Days            []monthDayDTO `json:"days"`
}

type calendarDTO struct {
	Location    observerDTO `json:"location"`
	Months      []monthDTO  `json:"months"`
	GeneratedAt time.Time   `json:"generated_at"`
}

func toObserverDTO(obs astro.Observer) observerDTO {
	return observerDTO{Latitude: obs.Latitude, Longitude: obs.Longitude}
}

func toVisibilityDTO(res astro.VisibilityResult) visibilityDTO {
	return visibilityDTO{
		Classification:       res.Classification,
		V:                    floatPtr(res.V),
		Sunset:               timePtr(res.Sunset),
		Moonset:              timePtr(res.Moonset),
		LagMinutes:           res.LagMinutes,
		BestTime:             timePtr(res.BestTime),
		ARCV:                 res.ARCV,
		CrescentWidth:        res.CrescentWidth,
		Conjunction:          timePtr(res.Conjunction),
		ConjunctionTriggered: res.ConjunctionTriggered,
		Reason:               res.Reason,
	}
}

func toNightDTO(w astro.NightWindow) nightDTO {
	return nightDTO{
		Start:           w.Start,
		End:             w.End,
		DurationMinutes: w.Duration().Minutes(),
		Approximate:     w.Approximate,
	}
}

func toGridCellDTO(c grid.Cell) gridCellDTO {
	dto := gridCellDTO{
		Observer:   toObserverDTO(c.Observer),
		Visibility: toVisibilityDTO(c.Visibility),
	}
	if c.NightDefined {
		night := toNightDTO(c.Night)
		dto.Night = &night
	}
	if c.Shared != nil {
		dto.Shared = &sharedDTO{
			Overlaps:       c.Shared.Overlaps,
			OverlapMinutes: c.Shared.OverlapMinutes,
		}
	}
	return dto
}

func toNight1DTO(n calendar.Night1Result) night1DTO {
	dto := night1DTO{
		Date:   n.Date.Format("2006-01-02"),
		Method: n.Method,
	}
	for _, cell := range n.InheritedFrom {
		dto.InheritedFrom = append(dto.InheritedFrom, toGridCellDTO(cell))
	}
	return dto
}

func toCalendarDTO(res *calendar.CalendarResult) calendarDTO {
	dto := calendarDTO{
		Location:    toObserverDTO(res.Location),
		Months:      make([]monthDTO, 0, len(res.Months)),
		GeneratedAt: res.GeneratedAt,
	}
	for _, m := range res.Months {
		month := monthDTO{
			Name:            m.Name,
			Conjunction:     m.Conjunction,
			Night1:          toNight1DTO(m.Night1),
			NextConjunction: m.NextConjunction,
			Days:            make([]monthDayDTO, 0, len(m.Days)),
		}
		for _, d := range m.Days {
			month.Days = append(month.Days, monthDayDTO{
				Night: d.Night,
				Date:  d.Date.Format("2006-01-02"),
			})
		}
		dto.Months = append(dto.Months, month)
	}
	return dto
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

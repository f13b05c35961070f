package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/moonsight/internal/adapter/geocode"
	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/calendar"
)

const maxCalendarMonths = 120

type visibilityResponse struct {
	Observer   observerDTO   `json:"observer"`
	Date       string        `json:"date"`
	Visibility visibilityDTO `json:"visibility"`
}

type nightResponse struct {
	Observer observerDTO `json:"observer"`
	Date     string      `json:"date"`
	Defined  bool        `json:"defined"`
	Night    *nightDTO   `json:"night,omitempty"`
}

type gridResponse struct {
	Date  string        `json:"date"`
	Count int           `json:"count"`
	Cells []gridCellDTO `json:"cells"`
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	obs, ok := s.resolveObserver(w, r)
	if !ok {
		return
	}
	date, err := parseDate(r.URL.Query(), "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Visibility(r.Context(), obs, date)
	if err != nil {
		s.respondEngineError(w, r, "visibility", err)
		return
	}

	writeJSON(w, http.StatusOK, visibilityResponse{
		Observer:   toObserverDTO(obs),
		Date:       date.Format("2006-01-02"),
		Visibility: toVisibilityDTO(res),
	})
}

func (s *Server) handleNight(w http.ResponseWriter, r *http.Request) {
	obs, ok := s.resolveObserver(w, r)
	if !ok {
		return
	}
	date, err := parseDate(r.URL.Query(), "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := nightResponse{
		Observer: toObserverDTO(obs),
		Date:     date.Format("2006-01-02"),
	}
	if window, ok := s.engine.Night(obs, date); ok {
		resp.Defined = true
		night := toNightDTO(window)
		resp.Night = &night
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := parseDate(q, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	anchor, err := parseAnchor(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cells, err := s.engine.FullGrid(r.Context(), date, anchor)
	if err != nil {
		s.respondEngineError(w, r, "grid", err)
		return
	}

	resp := gridResponse{
		Date:  date.Format("2006-01-02"),
		Count: len(cells),
		Cells: make([]gridCellDTO, 0, len(cells)),
	}
	for _, c := range cells {
		resp.Cells = append(resp.Cells, toGridCellDTO(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	obs, ok := s.resolveObserver(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	start, err := parseDate(q, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	months, err := parseMonths(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Calendar(r.Context(), obs, start, months, nil)
	if err != nil {
		if errors.Is(err, calendar.ErrExhausted) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.respondEngineError(w, r, "calendar", err)
		return
	}

	// Publishing is advisory; a broker outage must not fail the request.
	if s.publisher != nil {
		if err := s.publisher.PublishCalendar(r.Context(), res); err != nil {
			s.logger.Error("publish calendar months", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, toCalendarDTO(res))
}

// resolveObserver extracts coordinates from lat/lon parameters or resolves
// a city name through the geocoder. It writes the error response itself so
// geocoder failures can map to distinct status codes.
func (s *Server) resolveObserver(w http.ResponseWriter, r *http.Request) (astro.Observer, bool) {
	q := r.URL.Query()

	if city := q.Get("city"); city != "" {
		if s.geocoder == nil {
			writeError(w, http.StatusBadRequest, "city lookup requires geocoding to be enabled")
			return astro.Observer{}, false
		}
		obs, err := s.geocoder.Geocode(r.Context(), city)
		if err != nil {
			if errors.Is(err, geocode.ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("unknown place %q", city))
			} else {
				writeError(w, http.StatusBadGateway, "geocoding failed: "+err.Error())
			}
			return astro.Observer{}, false
		}
		return obs, true
	}

	lat, err := parseFloatParam(q, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return astro.Observer{}, false
	}
	lon, err := parseFloatParam(q, "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return astro.Observer{}, false
	}
	if lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "lat must be between -90 and 90")
		return astro.Observer{}, false
	}
	if lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "lon must be between -180 and 180")
		return astro.Observer{}, false
	}
	return astro.Observer{Latitude: lat, Longitude: lon}, true
}

func (s *Server) respondEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Client gave up; nothing useful to write.
		return
	}
	s.logger.Error("request failed", "op", op, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func parseFloatParam(q url.Values, key string) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter %s", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

// parseDate reads a YYYY-MM-DD parameter, defaulting to today in UTC.
func parseDate(q url.Values, key string) (time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q, want YYYY-MM-DD", key, raw)
	}
	return t, nil
}

func parseAnchor(q url.Values) (*astro.Observer, error) {
	rawLat, rawLon := q.Get("anchor_lat"), q.Get("anchor_lon")
	if rawLat == "" && rawLon == "" {
		return nil, nil
	}
	if rawLat == "" || rawLon == "" {
		return nil, errors.New("anchor_lat and anchor_lon must be provided together")
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid anchor_lat: %q", rawLat)
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid anchor_lon: %q", rawLon)
	}
	return &astro.Observer{Latitude: lat, Longitude: lon}, nil
}

func parseMonths(q url.Values) (int, error) {
	raw := q.Get("months")
	if raw == "" {
		return 12, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid months: %q", raw)
	}
	if n < 1 || n > maxCalendarMonths {
		return 0, fmt.Errorf("months must be between 1 and %d", maxCalendarMonths)
	}
	return n, nil
}

// Command moonsight checks crescent visibility, prints night windows, or
// assembles a lunar calendar from the command line.
//
// Usage:
//
//	moonsight -lat 21.42 -lon 39.83 -date 2026-03-20
//	moonsight -mode night -city "Kuala Lumpur" -date 2026-03-20
//	moonsight -mode calendar -lat 21.42 -lon 39.83 -start 2026-03-25 -months 12 -json
//
// -city needs the MAPBOX_TOKEN environment variable.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/moonsight/internal/adapter/geocode"
	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/engine"
	"github.com/couchcryptid/moonsight/internal/ephem"
	"github.com/couchcryptid/moonsight/internal/observability"
)

const geocodeTimeout = 10 * time.Second

func main() {
	mode := flag.String("mode", "visibility", "what to compute: visibility, night, or calendar")
	lat := flag.Float64("lat", math.NaN(), "observer latitude in degrees")
	lon := flag.Float64("lon", math.NaN(), "observer longitude in degrees")
	city := flag.String("city", "", "place name to geocode instead of -lat/-lon")
	date := flag.String("date", "", "evening to check, YYYY-MM-DD (default today)")
	start := flag.String("start", "", "calendar start date, YYYY-MM-DD (default today)")
	months := flag.Int("months", 12, "number of lunar months to assemble")
	jsonOut := flag.Bool("json", false, "emit JSON instead of text")
	parallelism := flag.Int("parallelism", 0, "grid search workers (0 = derive from CPUs)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	switch *mode {
	case "visibility", "night", "calendar":
	default:
		flag.Usage()
		fmt.Fprintf(os.Stderr, "\nunknown mode %q, want visibility, night, or calendar\n", *mode)
		os.Exit(2)
	}
	if *city == "" && (math.IsNaN(*lat) || math.IsNaN(*lon)) {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\neither -lat and -lon or -city is required")
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := resolveObserver(ctx, *lat, *lon, *city, metrics, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	eng := engine.New(ephem.New(), astro.AstralSunEvents{}, logger, metrics, *parallelism)

	switch *mode {
	case "visibility":
		err = runVisibility(ctx, eng, obs, *date, *jsonOut)
	case "night":
		err = runNight(eng, obs, *date, *jsonOut)
	case "calendar":
		err = runCalendar(ctx, eng, obs, *start, *months, *jsonOut)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// resolveObserver turns the location flags into an observer, geocoding the
// city name when one was given.
func resolveObserver(ctx context.Context, lat, lon float64, city string, metrics *observability.Metrics, logger *slog.Logger) (astro.Observer, error) {
	if city == "" {
		return astro.Observer{Latitude: lat, Longitude: lon}, nil
	}
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		return astro.Observer{}, errors.New("-city requires the MAPBOX_TOKEN environment variable")
	}
	client := geocode.NewClient(token, geocodeTimeout, metrics, logger)
	obs, err := client.Geocode(ctx, city)
	if err != nil {
		return astro.Observer{}, fmt.Errorf("geocode %q: %w", city, err)
	}
	return obs, nil
}

func runVisibility(ctx context.Context, eng *engine.Engine, obs astro.Observer, dateStr string, jsonOut bool) error {
	date, err := parseDate(dateStr)
	if err != nil {
		return err
	}

	res, err := eng.Visibility(ctx, obs, date)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(visibilityJSON{
			Latitude:       obs.Latitude,
			Longitude:      obs.Longitude,
			Date:           date.Format("2006-01-02"),
			Classification: res.Classification.String(),
			V:              nanToNil(res.V),
			Sunset:         timeToString(res.Sunset),
			Moonset:        timeToString(res.Moonset),
			LagMinutes:     res.LagMinutes,
			BestTime:       timeToString(res.BestTime),
			ARCV:           res.ARCV,
			CrescentWidth:  res.CrescentWidth,
			Reason:         res.Reason,
		})
	}

	fmt.Printf("Crescent visibility at (%.4f, %.4f) on %s\n\n", obs.Latitude, obs.Longitude, date.Format("2006-01-02"))
	fmt.Printf("  Classification : %s\n", res.Classification)
	if !math.IsNaN(res.V) {
		fmt.Printf("  Odeh V         : %.2f\n", res.V)
		fmt.Printf("  ARCV           : %.2f deg\n", res.ARCV)
		fmt.Printf("  Crescent width : %.2f arcmin\n", res.CrescentWidth)
	}
	if !res.Sunset.IsZero() {
		fmt.Printf("  Sunset         : %s\n", res.Sunset.Format(time.RFC3339))
	}
	if !res.Moonset.IsZero() {
		fmt.Printf("  Moonset        : %s\n", res.Moonset.Format(time.RFC3339))
		fmt.Printf("  Lag            : %.1f min\n", res.LagMinutes)
	}
	if !res.BestTime.IsZero() {
		fmt.Printf("  Best time      : %s\n", res.BestTime.Format(time.RFC3339))
	}
	if res.ConjunctionTriggered {
		fmt.Println("  Note           : conjunction falls within this night")
	}
	if res.Reason != "" {
		fmt.Printf("  Reason         : %s\n", res.Reason)
	}
	return nil
}

func runNight(eng *engine.Engine, obs astro.Observer, dateStr string, jsonOut bool) error {
	date, err := parseDate(dateStr)
	if err != nil {
		return err
	}

	night, ok := eng.Night(obs, date)

	if jsonOut {
		out := nightJSON{
			Latitude:  obs.Latitude,
			Longitude: obs.Longitude,
			Date:      date.Format("2006-01-02"),
			Defined:   ok,
		}
		if ok {
			out.NightStart = night.Start.Format(time.RFC3339)
			out.NightEnd = night.End.Format(time.RFC3339)
			out.DurationMinutes = night.Duration().Minutes()
			out.Approximate = night.Approximate
		}
		return printJSON(out)
	}

	fmt.Printf("Night window at (%.4f, %.4f) on %s\n\n", obs.Latitude, obs.Longitude, date.Format("2006-01-02"))
	if !ok {
		fmt.Println("  No night window: the sun does not set and rise here on this date.")
		return nil
	}
	fmt.Printf("  Night start : %s\n", night.Start.Format(time.RFC3339))
	fmt.Printf("  Night end   : %s\n", night.End.Format(time.RFC3339))
	fmt.Printf("  Duration    : %.0f min\n", night.Duration().Minutes())
	if night.Approximate {
		fmt.Println("  Note        : twilight search failed, window approximated as 12h")
	}
	return nil
}

func runCalendar(ctx context.Context, eng *engine.Engine, obs astro.Observer, startStr string, months int, jsonOut bool) error {
	start, err := parseDate(startStr)
	if err != nil {
		return err
	}

	progress := func(p float64) {
		fmt.Fprintf(os.Stderr, "\rassembling calendar: %3.0f%%", p)
	}
	res, err := eng.Calendar(ctx, obs, start, months, progress)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	if jsonOut {
		out := calendarJSON{
			Latitude:    res.Location.Latitude,
			Longitude:   res.Location.Longitude,
			GeneratedAt: res.GeneratedAt.Format(time.RFC3339),
		}
		for _, m := range res.Months {
			mj := monthJSON{
				Name:            m.Name,
				Night1:          m.Night1.Date.Format("2006-01-02"),
				Method:          m.Night1.Method.String(),
				Conjunction:     m.Conjunction.Format(time.RFC3339),
				NextConjunction: m.NextConjunction.Format(time.RFC3339),
			}
			for _, d := range m.Days {
				mj.Days = append(mj.Days, dayJSON{Night: d.Night, Date: d.Date.Format("2006-01-02")})
			}
			out.Months = append(out.Months, mj)
		}
		return printJSON(out)
	}

	fmt.Printf("Lunar calendar for (%.4f, %.4f), %d months from %s\n\n",
		obs.Latitude, obs.Longitude, months, start.Format("2006-01-02"))
	fmt.Printf("%-18s %-12s %5s  %s\n", "Month", "Night 1", "Days", "Method")
	for _, m := range res.Months {
		fmt.Printf("%-18s %-12s %5d  %s\n",
			m.Name, m.Night1.Date.Format("2006-01-02"), len(m.Days), m.Night1.Method)
	}
	return nil
}

// --- output types and helpers ---

type visibilityJSON struct {
	Latitude       float64  `json:"lat"`
	Longitude      float64  `json:"lon"`
	Date           string   `json:"date"`
	Classification string   `json:"classification"`
	V              *float64 `json:"v"`
	Sunset         string   `json:"sunset,omitempty"`
	Moonset        string   `json:"moonset,omitempty"`
	LagMinutes     float64  `json:"lag_minutes"`
	BestTime       string   `json:"best_time,omitempty"`
	ARCV           float64  `json:"arcv"`
	CrescentWidth  float64  `json:"crescent_width_arcmin"`
	Reason         string   `json:"reason,omitempty"`
}

type nightJSON struct {
	Latitude        float64 `json:"lat"`
	Longitude       float64 `json:"lon"`
	Date            string  `json:"date"`
	Defined         bool    `json:"defined"`
	NightStart      string  `json:"night_start,omitempty"`
	NightEnd        string  `json:"night_end,omitempty"`
	DurationMinutes float64 `json:"duration_minutes,omitempty"`
	Approximate     bool    `json:"approximate,omitempty"`
}

type calendarJSON struct {
	Latitude    float64     `json:"lat"`
	Longitude   float64     `json:"lon"`
	Months      []monthJSON `json:"months"`
	GeneratedAt string      `json:"generated_at"`
}

type monthJSON struct {
	Name            string    `json:"name"`
	Night1          string    `json:"night1"`
	Method          string    `json:"method"`
	Conjunction     string    `json:"conjunction"`
	NextConjunction string    `json:"next_conjunction"`
	Days            []dayJSON `json:"days"`
}

type dayJSON struct {
	Night int    `json:"night"`
	Date  string `json:"date"`
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nanToNil(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

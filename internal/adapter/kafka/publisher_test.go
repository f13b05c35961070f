package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/calendar"
	"github.com/couchcryptid/moonsight/internal/config"
	"github.com/couchcryptid/moonsight/internal/observability"
)

func testCalendarResult() *calendar.CalendarResult {
	conj := time.Date(2026, 3, 19, 10, 0, 0, 0, time.UTC)
	return &calendar.CalendarResult{
		Location: astro.Observer{Latitude: 21.42, Longitude: 39.83},
		Months: []calendar.MonthRecord{
			{
				Name:        "Shawwal",
				Conjunction: conj,
				Night1: calendar.Night1Result{
					Date:   time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC),
					Method: calendar.Direct,
				},
				NextConjunction: conj.Add(708 * time.Hour),
				Days: []calendar.MonthDay{
					{Night: 1, Date: time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC)},
					{Night: 2, Date: time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC)},
					{Night: 3, Date: time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC)},
				},
			},
		},
		GeneratedAt: time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestSerializeMonth(t *testing.T) {
	res := testCalendarResult()

	msg, err := serializeMonth(res, &res.Months[0])
	require.NoError(t, err)

	assert.Equal(t, []byte("21.42,39.83:2026-03-21"), msg.Key)
	assert.Contains(t, string(msg.Value), `"name":"Shawwal"`)
	assert.Contains(t, string(msg.Value), `"night1":"2026-03-21"`)
	assert.Contains(t, string(msg.Value), `"method":"direct"`)
	assert.Contains(t, string(msg.Value), `"days":3`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "month_name", msg.Headers[0].Key)
	assert.Equal(t, []byte("Shawwal"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-06-20T09:00:00Z"), msg.Headers[1].Value)
}

func TestSerializeMonth_InheritedMethod(t *testing.T) {
	res := testCalendarResult()
	res.Months[0].Night1.Method = calendar.SharedNightInheritance

	msg, err := serializeMonth(res, &res.Months[0])
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"method":"shared_night"`)
}

func TestPublishCalendar_NoMonths(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:     []string{"localhost:9092"},
		KafkaMonthsTopic: "lunar-months",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewPublisher(cfg, observability.NewMetricsForTesting(), logger)
	defer p.Close()

	// No months means no broker round trip, so this succeeds without Kafka.
	err := p.PublishCalendar(context.Background(), &calendar.CalendarResult{})
	require.NoError(t, err)
}

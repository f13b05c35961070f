//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/moonsight/internal/adapter/kafka"
	"github.com/couchcryptid/moonsight/internal/astro"
	"github.com/couchcryptid/moonsight/internal/calendar"
	"github.com/couchcryptid/moonsight/internal/config"
	"github.com/couchcryptid/moonsight/internal/observability"
)

const testMonthsTopic = "test-lunar-months"

// monthMessage holds a deserialized message read from the months topic.
type monthMessage struct {
	Key     string
	Headers map[string]string
	Value   map[string]any
}

func readMonth(ctx context.Context, t *testing.T, consumer *kafkago.Reader) monthMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from months topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var value map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &value), "unmarshal month message")

	return monthMessage{
		Key:     string(msg.Key),
		Headers: headers,
		Value:   value,
	}
}

// TestMonthPublisher verifies that an assembled calendar round-trips through
// real Kafka with deterministic keys and the expected wire schema.
func TestMonthPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testMonthsTopic)

	cfg := &config.Config{
		KafkaEnabled:     true,
		KafkaBrokers:     []string{broker},
		KafkaMonthsTopic: testMonthsTopic,
	}

	publisher := kafka.NewPublisher(cfg, observability.NewMetricsForTesting(), discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	res := fixtureCalendar()
	require.NoError(t, publisher.PublishCalendar(ctx, res))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testMonthsTopic,
		GroupID:     fmt.Sprintf("test-months-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	byName := make(map[string]monthMessage, len(res.Months))
	for range res.Months {
		mm := readMonth(ctx, t, consumer)
		byName[mm.Headers["month_name"]] = mm
	}
	require.Len(t, byName, 3)

	ramadan := byName["Ramadan"]
	assert.Equal(t, "21.42,39.83:2026-02-19", ramadan.Key)
	assert.Equal(t, "Ramadan", ramadan.Value["name"])
	assert.Equal(t, "2026-02-19", ramadan.Value["night1"])
	assert.Equal(t, "direct", ramadan.Value["method"])
	assert.Equal(t, 30.0, ramadan.Value["days"])
	assert.Equal(t, 21.42, ramadan.Value["lat"])

	shawwal := byName["Shawwal"]
	assert.Equal(t, "shared_night", shawwal.Value["method"])
	assert.Equal(t, "2026-03-21", shawwal.Value["night1"])

	for name, mm := range byName {
		_, err := time.Parse(time.RFC3339, mm.Headers["generated_at"])
		assert.NoError(t, err, "generated_at header for %s", name)
		assert.NotEmpty(t, mm.Value["conjunction"], "conjunction for %s", name)
		assert.NotEmpty(t, mm.Value["next_conjunction"], "next_conjunction for %s", name)
	}
}

// TestMonthPublisher_Republish verifies that recomputing the same calendar
// reuses the same keys, so a compacted topic keeps one record per month.
func TestMonthPublisher_Republish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testMonthsTopic)

	cfg := &config.Config{
		KafkaEnabled:     true,
		KafkaBrokers:     []string{broker},
		KafkaMonthsTopic: testMonthsTopic,
	}

	publisher := kafka.NewPublisher(cfg, observability.NewMetricsForTesting(), discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	res := fixtureCalendar()
	require.NoError(t, publisher.PublishCalendar(ctx, res))
	require.NoError(t, publisher.PublishCalendar(ctx, res))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testMonthsTopic,
		GroupID:     fmt.Sprintf("test-republish-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	keys := make(map[string]int)
	for i := 0; i < 2*len(res.Months); i++ {
		mm := readMonth(ctx, t, consumer)
		keys[mm.Key]++
	}
	require.Len(t, keys, 3, "republishing must not mint new keys")
	for key, n := range keys {
		assert.Equal(t, 2, n, "key %s", key)
	}
}

// --- fixtures and helpers ---

func fixtureCalendar() *calendar.CalendarResult {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	monthDays := func(night1 time.Time, n int) []calendar.MonthDay {
		days := make([]calendar.MonthDay, 0, n)
		for i := 0; i < n; i++ {
			days = append(days, calendar.MonthDay{Night: i + 1, Date: night1.AddDate(0, 0, i)})
		}
		return days
	}

	c1 := time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)
	c2 := time.Date(2026, 3, 19, 1, 0, 0, 0, time.UTC)
	c3 := time.Date(2026, 4, 17, 11, 0, 0, 0, time.UTC)
	c4 := time.Date(2026, 5, 16, 20, 0, 0, 0, time.UTC)

	return &calendar.CalendarResult{
		Location: astro.Observer{Latitude: 21.42, Longitude: 39.83},
		Months: []calendar.MonthRecord{
			{
				Name:            "Ramadan",
				Conjunction:     c1,
				Night1:          calendar.Night1Result{Date: day(2026, 2, 19), Method: calendar.Direct},
				NextConjunction: c2,
				Days:            monthDays(day(2026, 2, 19), 30),
			},
			{
				Name:            "Shawwal",
				Conjunction:     c2,
				Night1:          calendar.Night1Result{Date: day(2026, 3, 21), Method: calendar.SharedNightInheritance},
				NextConjunction: c3,
				Days:            monthDays(day(2026, 3, 21), 29),
			},
			{
				Name:            "Dhu al-Qi'dah",
				Conjunction:     c3,
				Night1:          calendar.Night1Result{Date: day(2026, 4, 19), Method: calendar.Direct},
				NextConjunction: c4,
				Days:            monthDays(day(2026, 4, 19), 29),
			},
		},
		GeneratedAt: time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka in a container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a topic with a single partition via the controller
// broker.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic")
}

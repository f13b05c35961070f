// Package kafka publishes assembled lunar months to a Kafka topic so
// downstream consumers (prayer-time services, date converters) can react to
// recomputed calendars.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/moonsight/internal/calendar"
	"github.com/couchcryptid/moonsight/internal/config"
	"github.com/couchcryptid/moonsight/internal/observability"
)

// Publisher produces month records to the months topic.
type Publisher struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured months topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaMonthsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, metrics: metrics, logger: logger}
}

// PublishCalendar serializes every month of an assembled calendar and
// publishes them in a single WriteMessages call.
func (p *Publisher) PublishCalendar(ctx context.Context, res *calendar.CalendarResult) error {
	if len(res.Months) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(res.Months))
	for i := range res.Months {
		msg, err := serializeMonth(res, &res.Months[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish months: %w", err)
	}
	p.metrics.MonthsPublished.Add(float64(len(msgs)))
	p.logger.Info("published calendar months",
		"count", len(msgs),
		"topic", p.writer.Topic,
		"lat", res.Location.Latitude,
		"lon", res.Location.Longitude,
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// monthEvent is the wire schema for one published month.
type monthEvent struct {
	Latitude        float64   `json:"lat"`
	Longitude       float64   `json:"lon"`
	Name            string    `json:"name"`
	Night1          string    `json:"night1"`
	Method          string    `json:"method"`
	Conjunction     time.Time `json:"conjunction"`
	NextConjunction time.Time `json:"next_conjunction"`
	Days            int       `json:"days"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// serializeMonth marshals a month record into a Kafka message. The key is
// deterministic so re-publishing the same location and month compacts away.
func serializeMonth(res *calendar.CalendarResult, m *calendar.MonthRecord) (kafkago.Message, error) {
	event := monthEvent{
		Latitude:        res.Location.Latitude,
		Longitude:       res.Location.Longitude,
		Name:            m.Name,
		Night1:          m.Night1.Date.Format("2006-01-02"),
		Method:          m.Night1.Method.String(),
		Conjunction:     m.Conjunction,
		NextConjunction: m.NextConjunction,
		Days:            len(m.Days),
		GeneratedAt:     res.GeneratedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize month %s: %w", m.Name, err)
	}
	key := fmt.Sprintf("%.2f,%.2f:%s", event.Latitude, event.Longitude, event.Night1)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "month_name", Value: []byte(m.Name)},
			{Key: "generated_at", Value: []byte(res.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

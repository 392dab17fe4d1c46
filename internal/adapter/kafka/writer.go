package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/route-directions/internal/config"
	"github.com/couchcryptid/route-directions/internal/domain"
	"github.com/couchcryptid/route-directions/internal/observability"
)

// Writer publishes resolved routes to a Kafka topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured route topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRouteTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishRoutes serializes and writes routes in a single WriteMessages call.
// Messages are keyed by origin and destination so repeated lookups of the
// same pair land on the same partition.
func (w *Writer) PublishRoutes(ctx context.Context, routes ...domain.ResolvedRoute) error {
	if len(routes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(routes))
	for i := range routes {
		msg, err := serializeToMessage(routes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		w.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish routes: %w", err)
	}
	w.metrics.RoutesPublished.Add(float64(len(msgs)))
	w.logger.Debug("routes published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey is the partition key for a resolved route.
func MessageKey(route domain.ResolvedRoute) string {
	return route.Origin + "|" + route.Destination
}

// serializeToMessage marshals a ResolvedRoute into a Kafka message.
func serializeToMessage(route domain.ResolvedRoute) (kafkago.Message, error) {
	data, err := json.Marshal(route)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize resolved route: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(route)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "mode", Value: []byte(route.Mode)},
			{Key: "resolved_at", Value: []byte(route.Route.ResolvedAt.Format(time.RFC3339))},
		},
	}, nil
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"fabrix-backend/internal/models"
)

// KafkaPublisher mirrors order lifecycle events onto a topic for downstream
// consumers (analytics, fulfillment).
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

type orderEvent struct {
	Kind        EventKind          `json:"kind"`
	OrderNumber string             `json:"orderNumber"`
	Status      models.OrderStatus `json:"status"`
	IsPaid      bool               `json:"isPaid"`
	Total       float64            `json:"total"`
	At          time.Time          `json:"at"`
}

func (p *KafkaPublisher) Notify(ctx context.Context, kind EventKind, order *models.Order) {
	payload, err := json.Marshal(orderEvent{
		Kind:        kind,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		IsPaid:      order.Payment.IsPaid,
		Total:       order.Payment.Total,
		At:          time.Now(),
	})
	if err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Msg("order event marshal failed")
		return
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%s", kind, order.OrderNumber)),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error().Err(err).Str("order", order.OrderNumber).Str("kind", string(kind)).Msg("order event publish failed")
		return
	}
	logger.Info().Str("order", order.OrderNumber).Str("kind", string(kind)).Msg("order event published")
}

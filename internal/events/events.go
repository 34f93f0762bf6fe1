// Package events publishes order lifecycle notifications for kitchen displays
// and reporting consumers.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"restopos/internal/domain"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	Type          string    `json:"type"`
	BusinessID    string    `json:"business_id"`
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	Source        string    `json:"source"`
	TotalCents    int64     `json:"total_cents"`
	PaymentMethod string    `json:"payment_method"`
	At            time.Time `json:"at"`
}

func FromOrder(eventType string, order domain.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          eventType,
		BusinessID:    order.BusinessID,
		OrderID:       order.ID,
		Status:        order.Status,
		Source:        order.Source,
		TotalCents:    order.TotalCents,
		PaymentMethod: order.PaymentMethod,
		At:            at.UTC(),
	}
}

type Publisher interface {
	PublishOrder(ctx context.Context, event OrderEvent) error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishOrder(_ context.Context, _ OrderEvent) error {
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes to topic on the comma separated broker list.
// Messages are keyed by business id so one tenant's events stay ordered.
func NewKafkaPublisher(brokers string, topic string) *KafkaPublisher {
	addrs := make([]string, 0, 2)
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			addrs = append(addrs, broker)
		}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) PublishOrder(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BusinessID),
		Value: payload,
		Time:  event.At,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

package services

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// OrderStatusEvent is published on every order status transition so that
// downstream consumers (notifications, tracking screens) can react without
// polling.
type OrderStatusEvent struct {
	OrderID    uint      `json:"order_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderEventPublisher publishes order lifecycle events.
type OrderEventPublisher interface {
	Publish(ctx context.Context, event OrderStatusEvent) error
}

// KafkaPublisher writes order events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var orderEventsInstance OrderEventPublisher

// InitOrderEvents wires the Kafka publisher. An empty broker address leaves
// event publishing disabled.
func InitOrderEvents(broker, topic string) {
	if broker == "" {
		orderEventsInstance = nil
		return
	}
	orderEventsInstance = &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// SetOrderEvents sets the publisher instance (primarily for testing)
func SetOrderEvents(p OrderEventPublisher) {
	orderEventsInstance = p
}

// Publish writes one event to the topic, keyed by order ID so that events of
// the same order stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event OrderStatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.OrderID), 10)),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PublishOrderStatus emits a status-change event. Publishing is best effort:
// a broker failure is logged and never fails the originating request.
func PublishOrderStatus(ctx context.Context, orderID uint, status string, at time.Time) {
	if orderEventsInstance == nil {
		return
	}
	event := OrderStatusEvent{OrderID: orderID, Status: status, OccurredAt: at}
	if err := orderEventsInstance.Publish(ctx, event); err != nil {
		log.Printf("warning: failed to publish order status event: %v", err)
	}
}

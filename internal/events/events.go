package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
)

// OrderEvent is the JSON value written to the orders topic, keyed by order id.
type OrderEvent struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OrderID    string          `json:"orderId"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewOrderEvent(eventType, orderID, status string, total decimal.Decimal) OrderEvent {
	return OrderEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OrderID:    orderID,
		Status:     status,
		Total:      total,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

type KafkaProducer struct {
	Writer *kafka.Writer
	topic  string
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			BatchSize:              10,
			BatchTimeout:           time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func (k *KafkaProducer) Publish(ctx context.Context, ev OrderEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return k.Writer.WriteMessages(ctx, kafka.Message{
		Topic: k.topic,
		Key:   []byte(ev.OrderID),
		Value: value,
	})
}

func (k *KafkaProducer) Close() error { return k.Writer.Close() }

// Noop drops events; used when KAFKA_BROKERS is empty.
type Noop struct{}

func (Noop) Publish(context.Context, OrderEvent) error { return nil }

// Recorder keeps published events in memory. Tests use it to assert on side effects.
type Recorder struct {
	Events []OrderEvent
}

func (r *Recorder) Publish(_ context.Context, ev OrderEvent) error {
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) Types() []string {
	out := make([]string, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.EventType)
	}
	return out
}

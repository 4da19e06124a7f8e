package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"storefront/internal/domain"
)

// DefaultOrderTopic receives one record per order that reached paid.
const DefaultOrderTopic = "storefront.order-paid"

// OrderPaidEvent is the JSON value of an order-paid record. The record key is
// the order id so every event of an order lands on one partition.
type OrderPaidEvent struct {
	Type      string          `json:"type"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Email     string          `json:"email"`
	PaymentID string          `json:"payment_id,omitempty"`
	Total     string          `json:"total"`
	Currency  string          `json:"currency"`
	Items     []OrderPaidItem `json:"items"`
	PaidAt    time.Time       `json:"paid_at"`
}

type OrderPaidItem struct {
	ProductID  string `json:"product_id"`
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// Publisher announces order lifecycle changes.
type Publisher interface {
	OrderPaid(ctx context.Context, order domain.Order) error
}

// Noop drops every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) OrderPaid(context.Context, domain.Order) error { return nil }

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka publishes events with a franz-go client.
type Kafka struct {
	client producer
	topic  string
	logger *log.Logger
	closer func()
}

func NewKafka(brokers []string, topic string, logger *log.Logger) (*Kafka, error) {
	if topic == "" {
		topic = DefaultOrderTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	k := newKafka(client, topic, logger)
	k.closer = client.Close
	return k, nil
}

func newKafka(client producer, topic string, logger *log.Logger) *Kafka {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Kafka{client: client, topic: topic, logger: logger, closer: func() {}}
}

func (k *Kafka) OrderPaid(ctx context.Context, order domain.Order) error {
	record, err := orderPaidRecord(k.topic, order)
	if err != nil {
		return err
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		k.logger.Printf("events: produce topic=%s order_id=%s error=%v", k.topic, order.ID, err)
		return fmt.Errorf("produce order paid: %w", err)
	}
	k.logger.Printf("events: produced topic=%s order_id=%s", k.topic, order.ID)
	return nil
}

// Close releases the client.
func (k *Kafka) Close() {
	k.closer()
}

func orderPaidRecord(topic string, order domain.Order) (*kgo.Record, error) {
	ev := OrderPaidEvent{
		Type:      "order.paid",
		OrderID:   order.ID,
		UserID:    order.UserID,
		Email:     order.UserEmail,
		PaymentID: order.PaymentID,
		Total:     order.Total().String(),
		Currency:  "USD",
		PaidAt:    order.UpdatedAt.UTC(),
	}
	for _, item := range order.Items {
		ev.Items = append(ev.Items, OrderPaidItem{
			ProductID:  item.Product.ID,
			Title:      item.Product.Title,
			Quantity:   item.Quantity,
			PriceCents: item.Product.PriceCents,
		})
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal order paid: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(order.ID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}, nil
}

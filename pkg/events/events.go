// Package events publishes checkout events to Kafka. Publishing is
// best-effort: the publisher is nil-safe and disabled entirely when no
// brokers are configured.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const TopicOrderPaid = "orders.paid"

type Client struct {
	Brokers []string
}

func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

func (c *Client) newWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// OrderPaid is emitted after a cart has been finalized into a PAID order.
type OrderPaid struct {
	EventID    string          `json:"event_id"`
	OrderID    int             `json:"order_id"`
	UserID     int             `json:"user_id"`
	Total      decimal.Decimal `json:"total"`
	Items      []OrderPaidItem `json:"items"`
	NewCartID  int             `json:"new_cart_id"`
	OccurredAt string          `json:"occurred_at"`
}

type OrderPaidItem struct {
	ProductID int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher returns nil when the client has no brokers; callers treat a
// nil publisher as disabled.
func NewPublisher(client *Client, topic string) *Publisher {
	if client == nil || !client.Enabled() {
		return nil
	}
	return &Publisher{writer: client.newWriter(topic)}
}

func (p *Publisher) Publish(evt OrderPaid) error {
	if p == nil {
		return nil
	}
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.OccurredAt == "" {
		evt.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(evt.UserID)),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

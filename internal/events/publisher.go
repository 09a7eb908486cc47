package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/config"
	"github.com/minhngo-dev/storefront-checkout/internal/entities"

	"github.com/segmentio/kafka-go"
)

const (
	TypeOrderCreated  = "order.created"
	TypeStatusChanged = "order.status_changed"
)

// OrderEvent is the message other systems (notifications, analytics) consume
// instead of subscribing to the data store directly.
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	CustomerRef string    `json:"customer_ref,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to"`
	Actor       string    `json:"actor,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Total       int64     `json:"total,omitempty"`
	At          time.Time `json:"at"`
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(cfg config.Kafka) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
	}
}

func (p *Publisher) OrderCreated(ctx context.Context, order entities.Order) error {
	return p.publish(ctx, OrderEvent{
		Type:        TypeOrderCreated,
		OrderID:     order.ID,
		CustomerRef: order.CustomerRef,
		To:          string(order.Status),
		Total:       order.Total,
		At:          order.CreatedAt,
	})
}

func (p *Publisher) StatusChanged(ctx context.Context, orderID string, change entities.StatusChange) error {
	return p.publish(ctx, OrderEvent{
		Type:    TypeStatusChanged,
		OrderID: orderID,
		From:    string(change.From),
		To:      string(change.To),
		Actor:   change.Actor,
		Reason:  change.Reason,
		At:      change.At,
	})
}

func (p *Publisher) publish(ctx context.Context, event OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	// Key by order id so one order's events stay in one partition, in order.
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

package events

import (
	"context"
	"errors"
	"time"

	"boutique/internal/domain"

	"github.com/shopspring/decimal"
)

// EventType names what happened to an order
type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderStatusChanged EventType = "order_status_changed"
)

// OrderEvent is published after an order change has been committed
type OrderEvent struct {
	Type        EventType          `json:"type"`
	OrderID     int64              `json:"order_id"`
	UserID      int64              `json:"user_id"`
	Status      domain.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	ItemCount   int                `json:"item_count"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// NewOrderEvent snapshots order into an event of the given type
func NewOrderEvent(eventType EventType, order *domain.Order) OrderEvent {
	return OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
		OccurredAt:  time.Now().UTC(),
	}
}

// Publisher delivers order events to some downstream consumer
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// Multi fans an event out to every publisher and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event OrderEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, OrderEvent) error { return nil }

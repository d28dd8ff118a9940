package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/middleware"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher emits checkout lifecycle events to the topic exchange.
type Publisher struct {
	ch channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare the exchange so publish never fails due to missing infra
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error {
	return p.publish(ctx, OrderPlacedRoutingKey, wrap(ctx, OrderPlacedEvent, orderKey(ev.OrderID), ev))
}

func (p *Publisher) PublishOrderDelivered(ctx context.Context, ev OrderDelivered) error {
	return p.publish(ctx, OrderDeliveredRoutingKey, wrap(ctx, OrderDeliveredEvent, orderKey(ev.OrderID), ev))
}

func (p *Publisher) PublishOrderCompletionFailed(ctx context.Context, ev OrderCompletionFailed) error {
	return p.publish(ctx, OrderCompletionFailedRoutingKey, wrap(ctx, OrderCompletionFailedEvent, orderKey(ev.OrderID), ev))
}

func (p *Publisher) publish(ctx context.Context, routingKey string, env any) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: middleware.GetCorrelationID(ctx),
			Timestamp:     time.Now().UTC(),
			Body:          body,
		},
	)
}

func orderKey(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}

// Nop drops every event; used when no broker is configured.
type Nop struct{}

func (Nop) PublishOrderPlaced(context.Context, OrderPlaced) error                     { return nil }
func (Nop) PublishOrderDelivered(context.Context, OrderDelivered) error               { return nil }
func (Nop) PublishOrderCompletionFailed(context.Context, OrderCompletionFailed) error { return nil }

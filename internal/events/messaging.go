package events

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange                  = "shop.events"
	OrderPlacedRoutingKey           = "order.placed.v1"
	OrderDeliveredRoutingKey        = "order.delivered.v1"
	OrderCompletionFailedRoutingKey = "order.completion_failed.v1"
	producerName                    = "shop-client-go"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// Dial connects to the broker with a bounded dial timeout.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

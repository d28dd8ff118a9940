package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/middleware"
)

var ErrBadEnvelope = errors.New("bad event envelope")

// EventEnvelope wraps every checkout event. Consumers key on EventName and
// EventVersion; PartitionKey is the order id.
type EventEnvelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	TraceID       string    `json:"traceId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
	Payload       T         `json:"payload"`
}

func wrap[T any](ctx context.Context, name, partitionKey string, payload T) EventEnvelope[T] {
	env := EventEnvelope[T]{
		EventName:     name,
		EventVersion:  eventVersion,
		EventID:       uuid.NewString(),
		CorrelationID: middleware.GetCorrelationID(ctx),
		Producer:      producerName,
		PartitionKey:  partitionKey,
		OccurredAt:    time.Now().UTC(),
		Schema:        fmt.Sprintf("shop.%s.v%d", name, eventVersion),
		Payload:       payload,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	return env
}

// Validate checks the envelope identity a consumer routes on.
func (e EventEnvelope[T]) Validate(name string, version int) error {
	switch {
	case e.EventName != name:
		return fmt.Errorf("%w: eventName %q, want %q", ErrBadEnvelope, e.EventName, name)
	case e.EventVersion != version:
		return fmt.Errorf("%w: eventVersion %d, want %d", ErrBadEnvelope, e.EventVersion, version)
	case e.EventID == "":
		return fmt.Errorf("%w: missing eventId", ErrBadEnvelope)
	case e.PartitionKey == "":
		return fmt.Errorf("%w: missing partitionKey", ErrBadEnvelope)
	}
	return nil
}

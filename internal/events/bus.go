// Package events provides a small in-process event bus. Emitted events fan
// out synchronously to the configured notifiers; there is no durable event
// log in this storefront.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event with an arbitrary JSON-like payload.
type Event struct {
	ID          uuid.UUID
	Topic       string
	AggregateID string
	Payload     map[string]any
	OccurredAt  time.Time
}

// Notifier reacts to emitted events (e.g. email, metrics, etc.).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus fans events out to downstream handlers.
type Bus struct {
	Notifiers []Notifier
	Now       func() time.Time
}

func (b *Bus) now() time.Time {
	if b != nil && b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Emit dispatches the event to all configured notifiers. Notifier failures
// are joined and returned but do not stop the fan-out.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload map[string]any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	ev := Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  b.now(),
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
		}
	}
	return ev, joined
}

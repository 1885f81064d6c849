// Package events publishes reservation lifecycle notifications for other
// systems (calendar sync, reminders). Publishing is best effort: callers log
// failures and never roll back the booking because of them.
package events

import (
	"context"
	"time"
)

// Routing keys of the reservation topic.
const (
	ReservationConfirmed = "reservation.confirmed"
	ReservationDeleted   = "reservation.deleted"
)

// Reservation is the JSON payload of reservation events.
type Reservation struct {
	ID          string    `json:"id"`
	ChannelID   int64     `json:"channel_id"`
	ServiceName string    `json:"service_name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher sends v under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
	Close() error
}

// Nop discards every event. It is the default when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, any) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

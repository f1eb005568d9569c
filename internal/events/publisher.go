// Package events publishes outbound domain events (realtime club updates,
// notification triggers) on a RabbitMQ topic exchange. Publishing is
// best-effort: the booking and reconciliation pipelines never fail because a
// side effect could not be delivered.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	KeyBookingCreated      = "booking.created"
	KeyBookingCanceled     = "booking.canceled"
	KeyPaymentReceived     = "payment.received"
	KeyMembershipActivated = "membership.activated"
	KeyClubUpdated         = "club.updated"

	publishTimeout = 5 * time.Second
)

type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewPublisher connects to the broker and declares the topic exchange. An
// empty URL returns a nil publisher, which disables publishing.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Publish emits one event. Safe on a nil publisher; failures are logged and
// swallowed.
func (p *Publisher) Publish(ctx context.Context, key string, payload any) {
	if p == nil {
		return
	}
	body, err := json.Marshal(envelope{
		Event:      key,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Data:       payload,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("routing_key", key).Msg("Failed to marshal event")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx, p.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("routing_key", key).Msg("Failed to publish event")
	}
}

type envelope struct {
	Event      string `json:"event"`
	OccurredAt string `json:"occurred_at"`
	Data       any    `json:"data"`
}

// BookingCreated is broadcast per created occurrence so connected clients can
// refresh the club's calendar.
type BookingCreated struct {
	ClubID      int64  `json:"club_id"`
	BookingID   int64  `json:"booking_id"`
	CourtID     int64  `json:"court_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	RecurringID string `json:"recurring_id,omitempty"`
	ClientName  string `json:"client_name,omitempty"`
	ClientPhone string `json:"client_phone,omitempty"`
}

type BookingCanceled struct {
	ClubID    int64 `json:"club_id"`
	BookingID int64 `json:"booking_id"`
	CourtID   int64 `json:"court_id"`
}

type PaymentReceived struct {
	ClubID        int64  `json:"club_id"`
	BookingID     int64  `json:"booking_id,omitempty"`
	Amount        int64  `json:"amount"`
	PaymentStatus string `json:"payment_status,omitempty"`
	Source        string `json:"source"`
}

type MembershipActivated struct {
	ClubID   int64  `json:"club_id"`
	ClientID int64  `json:"client_id"`
	PlanID   int64  `json:"plan_id"`
	EndsAt   string `json:"ends_at"`
}

type ClubUpdated struct {
	ClubID             int64  `json:"club_id"`
	SubscriptionStatus string `json:"subscription_status"`
}

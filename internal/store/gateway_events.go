package store

import (
	"context"
	"time"
)

// GatewayEventExists reports whether a gateway payment id has already been
// applied. Webhooks are delivered at least once; replays must be no-ops.
func (q *Queries) GatewayEventExists(ctx context.Context, paymentID string) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM gateway_events WHERE payment_id = ?`, paymentID).Scan(&count)
	return count > 0, err
}

type RecordGatewayEventParams struct {
	PaymentID string
	Kind      string
	AppliedAt time.Time
}

func (q *Queries) RecordGatewayEvent(ctx context.Context, arg RecordGatewayEventParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO gateway_events (payment_id, kind, applied_at) VALUES (?, ?, ?)`,
		arg.PaymentID, arg.Kind, arg.AppliedAt.UTC())
	return err
}

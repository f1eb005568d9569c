package store

import (
	"context"
	"database/sql"
	"time"
)

const clubColumns = `id, name, slug, open_time, close_time, slot_duration_min, tz_offset_min,
	default_price, gateway_access_token, subscription_status, subscription_plan_id,
	next_billing_at, created_at`

func scanClub(row interface{ Scan(...interface{}) error }) (Club, error) {
	var c Club
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.OpenTime, &c.CloseTime, &c.SlotDurationMin,
		&c.TzOffsetMin, &c.DefaultPrice, &c.GatewayAccessToken, &c.SubscriptionStatus,
		&c.SubscriptionPlanID, &c.NextBillingAt, &c.CreatedAt,
	)
	return c, err
}

func (q *Queries) GetClubByID(ctx context.Context, id int64) (Club, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+clubColumns+` FROM clubs WHERE id = ?`, id)
	return scanClub(row)
}

func (q *Queries) GetClubBySlug(ctx context.Context, slug string) (Club, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+clubColumns+` FROM clubs WHERE slug = ?`, slug)
	return scanClub(row)
}

func (q *Queries) ListClubs(ctx context.Context) ([]Club, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+clubColumns+` FROM clubs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clubs []Club
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, err
		}
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

type CreateClubParams struct {
	Name            string
	Slug            string
	OpenTime        string
	CloseTime       string
	SlotDurationMin int64
	TzOffsetMin     int64
	DefaultPrice    int64
}

func (q *Queries) CreateClub(ctx context.Context, arg CreateClubParams) (Club, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO clubs (name, slug, open_time, close_time, slot_duration_min, tz_offset_min, default_price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.Slug, arg.OpenTime, arg.CloseTime, arg.SlotDurationMin, arg.TzOffsetMin, arg.DefaultPrice,
	)
	if err != nil {
		return Club{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Club{}, err
	}
	return q.GetClubByID(ctx, id)
}

type UpdateClubSubscriptionParams struct {
	ID                 int64
	SubscriptionStatus string
	SubscriptionPlanID sql.NullInt64
	NextBillingAt      sql.NullTime
}

func (q *Queries) UpdateClubSubscription(ctx context.Context, arg UpdateClubSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE clubs
		SET subscription_status = ?, subscription_plan_id = ?, next_billing_at = ?
		WHERE id = ?`,
		arg.SubscriptionStatus, arg.SubscriptionPlanID, arg.NextBillingAt, arg.ID,
	)
	return err
}

type UpdateClubSubscriptionStatusParams struct {
	ID                 int64
	SubscriptionStatus string
	NextBillingAt      sql.NullTime
}

func (q *Queries) UpdateClubSubscriptionStatus(ctx context.Context, arg UpdateClubSubscriptionStatusParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE clubs SET subscription_status = ?, next_billing_at = ? WHERE id = ?`,
		arg.SubscriptionStatus, arg.NextBillingAt, arg.ID,
	)
	return err
}

// Location returns the fixed-offset location bookings and price rules are
// interpreted in.
func (c Club) Location() *time.Location {
	return time.FixedZone("club", int(c.TzOffsetMin)*60)
}

package store

import (
	"context"
	"database/sql"
	"time"
)

const planColumns = `id, club_id, name, price, duration_days, discount_percent, created_at`

func scanPlan(row interface{ Scan(...interface{}) error }) (MembershipPlan, error) {
	var p MembershipPlan
	err := row.Scan(&p.ID, &p.ClubID, &p.Name, &p.Price, &p.DurationDays, &p.DiscountPercent, &p.CreatedAt)
	return p, err
}

func (q *Queries) GetMembershipPlanByID(ctx context.Context, id int64) (MembershipPlan, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM membership_plans WHERE id = ?`, id)
	return scanPlan(row)
}

func (q *Queries) ListMembershipPlans(ctx context.Context, clubID int64) ([]MembershipPlan, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+planColumns+` FROM membership_plans WHERE club_id = ? ORDER BY id`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []MembershipPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

type CreateMembershipPlanParams struct {
	ClubID          sql.NullInt64
	Name            string
	Price           int64
	DurationDays    int64
	DiscountPercent int64
}

func (q *Queries) CreateMembershipPlan(ctx context.Context, arg CreateMembershipPlanParams) (MembershipPlan, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO membership_plans (club_id, name, price, duration_days, discount_percent)
		VALUES (?, ?, ?, ?, ?)`,
		arg.ClubID, arg.Name, arg.Price, arg.DurationDays, arg.DiscountPercent,
	)
	if err != nil {
		return MembershipPlan{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return MembershipPlan{}, err
	}
	return q.GetMembershipPlanByID(ctx, id)
}

const membershipColumns = `id, club_id, client_id, plan_id, status, starts_at, ends_at, created_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (Membership, error) {
	var m Membership
	err := row.Scan(&m.ID, &m.ClubID, &m.ClientID, &m.PlanID, &m.Status, &m.StartsAt, &m.EndsAt, &m.CreatedAt)
	return m, err
}

func (q *Queries) GetActiveMembership(ctx context.Context, clientID int64) (Membership, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE client_id = ? AND status = ?
		ORDER BY id DESC LIMIT 1`,
		clientID, MembershipStatusActive)
	return scanMembership(row)
}

func (q *Queries) ListClientMemberships(ctx context.Context, clientID int64) ([]Membership, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM memberships WHERE client_id = ? ORDER BY id DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// CancelActiveMemberships expires every ACTIVE membership for the client. At
// most one should exist; the bulk form keeps the invariant self-healing.
func (q *Queries) CancelActiveMemberships(ctx context.Context, clientID int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE memberships SET status = ? WHERE client_id = ? AND status = ?`,
		MembershipStatusCancelled, clientID, MembershipStatusActive)
	return err
}

type CreateMembershipParams struct {
	ClubID   int64
	ClientID int64
	PlanID   int64
	StartsAt time.Time
	EndsAt   time.Time
}

func (q *Queries) CreateMembership(ctx context.Context, arg CreateMembershipParams) (Membership, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO memberships (club_id, client_id, plan_id, status, starts_at, ends_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.ClubID, arg.ClientID, arg.PlanID, MembershipStatusActive,
		arg.StartsAt.UTC(), arg.EndsAt.UTC(),
	)
	if err != nil {
		return Membership{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Membership{}, err
	}
	row := q.db.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE id = ?`, id)
	return scanMembership(row)
}

// ExpireLapsedMemberships cancels ACTIVE memberships whose end date has
// passed and clears the member flag on the affected clients. Returns the
// number of memberships expired.
func (q *Queries) ExpireLapsedMemberships(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE memberships SET status = ? WHERE status = ? AND ends_at < ?`,
		MembershipStatusCancelled, MembershipStatusActive, now.UTC())
	if err != nil {
		return 0, err
	}
	expired, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	_, err = q.db.ExecContext(ctx, `
		UPDATE clients
		SET is_member = 0
		WHERE is_member = 1
		  AND membership_expires_at IS NOT NULL
		  AND membership_expires_at < ?`,
		now.UTC())
	return expired, err
}

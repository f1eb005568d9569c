package store

import (
	"context"
	"database/sql"
)

const priceRuleColumns = `id, club_id, days_mask, start_time, end_time, price, member_price,
	priority, valid_from, valid_until, created_at`

func scanPriceRule(row interface{ Scan(...interface{}) error }) (PriceRule, error) {
	var r PriceRule
	err := row.Scan(
		&r.ID, &r.ClubID, &r.DaysMask, &r.StartTime, &r.EndTime, &r.Price,
		&r.MemberPrice, &r.Priority, &r.ValidFrom, &r.ValidUntil, &r.CreatedAt,
	)
	return r, err
}

// ListPriceRules returns a club's rules ordered by priority descending, dated
// rules before open-ended ones, then id ascending. The first matching rule in
// this order is the effective one.
func (q *Queries) ListPriceRules(ctx context.Context, clubID int64) ([]PriceRule, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+priceRuleColumns+`
		FROM price_rules
		WHERE club_id = ?
		ORDER BY priority DESC,
			CASE WHEN valid_from IS NOT NULL OR valid_until IS NOT NULL THEN 0 ELSE 1 END,
			id`,
		clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []PriceRule
	for rows.Next() {
		r, err := scanPriceRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

type CreatePriceRuleParams struct {
	ClubID      int64
	DaysMask    int64
	StartTime   string
	EndTime     string
	Price       int64
	MemberPrice sql.NullInt64
	Priority    int64
	ValidFrom   sql.NullString
	ValidUntil  sql.NullString
}

func (q *Queries) CreatePriceRule(ctx context.Context, arg CreatePriceRuleParams) (PriceRule, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO price_rules (club_id, days_mask, start_time, end_time, price, member_price, priority, valid_from, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ClubID, arg.DaysMask, arg.StartTime, arg.EndTime, arg.Price,
		arg.MemberPrice, arg.Priority, arg.ValidFrom, arg.ValidUntil,
	)
	if err != nil {
		return PriceRule{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return PriceRule{}, err
	}
	row := q.db.QueryRowContext(ctx, `SELECT `+priceRuleColumns+` FROM price_rules WHERE id = ?`, id)
	return scanPriceRule(row)
}

func (q *Queries) DeletePriceRule(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM price_rules WHERE id = ?`, id)
	return err
}

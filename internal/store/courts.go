package store

import (
	"context"
	"database/sql"
)

const courtColumns = `id, club_id, name, sport, court_type, active, duration_min, sort_order, created_at`

func scanCourt(row interface{ Scan(...interface{}) error }) (Court, error) {
	var c Court
	err := row.Scan(
		&c.ID, &c.ClubID, &c.Name, &c.Sport, &c.CourtType, &c.Active,
		&c.DurationMin, &c.SortOrder, &c.CreatedAt,
	)
	return c, err
}

func (q *Queries) GetCourtByID(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+courtColumns+` FROM courts WHERE id = ?`, id)
	return scanCourt(row)
}

func (q *Queries) ListCourts(ctx context.Context, clubID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+courtColumns+` FROM courts WHERE club_id = ? ORDER BY sort_order, id`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

func (q *Queries) ListActiveCourts(ctx context.Context, clubID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+courtColumns+` FROM courts WHERE club_id = ? AND active = 1 ORDER BY sort_order, id`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

type CreateCourtParams struct {
	ClubID      int64
	Name        string
	Sport       string
	CourtType   string
	DurationMin sql.NullInt64
	SortOrder   int64
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO courts (club_id, name, sport, court_type, duration_min, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.ClubID, arg.Name, arg.Sport, arg.CourtType, arg.DurationMin, arg.SortOrder,
	)
	if err != nil {
		return Court{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Court{}, err
	}
	return q.GetCourtByID(ctx, id)
}

type UpdateCourtParams struct {
	ID          int64
	Name        string
	Sport       string
	CourtType   string
	Active      bool
	DurationMin sql.NullInt64
	SortOrder   int64
}

func (q *Queries) UpdateCourt(ctx context.Context, arg UpdateCourtParams) (Court, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE courts
		SET name = ?, sport = ?, court_type = ?, active = ?, duration_min = ?, sort_order = ?
		WHERE id = ?`,
		arg.Name, arg.Sport, arg.CourtType, arg.Active, arg.DurationMin, arg.SortOrder, arg.ID,
	)
	if err != nil {
		return Court{}, err
	}
	return q.GetCourtByID(ctx, arg.ID)
}

// DeactivateCourt soft-disables a court. Courts are never hard-deleted while
// bookings reference them.
func (q *Queries) DeactivateCourt(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE courts SET active = 0 WHERE id = ?`, id)
	return err
}

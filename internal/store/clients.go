package store

import (
	"context"
	"database/sql"
)

const clientColumns = `id, club_id, name, phone, email, is_member, membership_expires_at, created_at`

func scanClient(row interface{ Scan(...interface{}) error }) (Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.ClubID, &c.Name, &c.Phone, &c.Email, &c.IsMember,
		&c.MembershipExpiresAt, &c.CreatedAt,
	)
	return c, err
}

func (q *Queries) GetClientByID(ctx context.Context, id int64) (Client, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	return scanClient(row)
}

type GetClientByPhoneParams struct {
	ClubID int64
	Phone  string
}

func (q *Queries) GetClientByPhone(ctx context.Context, arg GetClientByPhoneParams) (Client, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE club_id = ? AND phone = ?`,
		arg.ClubID, arg.Phone)
	return scanClient(row)
}

type SearchClientsParams struct {
	ClubID int64
	Query  string
	Limit  int64
}

func (q *Queries) SearchClients(ctx context.Context, arg SearchClientsParams) ([]Client, error) {
	limit := arg.Limit
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + arg.Query + "%"
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE club_id = ? AND (name LIKE ? OR phone LIKE ?)
		ORDER BY name
		LIMIT ?`,
		arg.ClubID, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

type CreateClientParams struct {
	ClubID int64
	Name   string
	Phone  string
	Email  sql.NullString
}

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (Client, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO clients (club_id, name, phone, email) VALUES (?, ?, ?, ?)`,
		arg.ClubID, arg.Name, arg.Phone, arg.Email,
	)
	if err != nil {
		return Client{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Client{}, err
	}
	return q.GetClientByID(ctx, id)
}

type UpdateClientContactParams struct {
	ID    int64
	Name  string
	Email sql.NullString
}

// UpdateClientContact refreshes name/email with newly supplied values. Blank
// values never overwrite existing data.
func (q *Queries) UpdateClientContact(ctx context.Context, arg UpdateClientContactParams) (Client, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE clients
		SET name = CASE WHEN ? != '' THEN ? ELSE name END,
		    email = CASE WHEN ? IS NOT NULL AND ? != '' THEN ? ELSE email END
		WHERE id = ?`,
		arg.Name, arg.Name, arg.Email, arg.Email, arg.Email, arg.ID,
	)
	if err != nil {
		return Client{}, err
	}
	return q.GetClientByID(ctx, arg.ID)
}

type SetClientMembershipParams struct {
	ID                  int64
	IsMember            bool
	MembershipExpiresAt sql.NullTime
}

func (q *Queries) SetClientMembership(ctx context.Context, arg SetClientMembershipParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE clients SET is_member = ?, membership_expires_at = ? WHERE id = ?`,
		arg.IsMember, arg.MembershipExpiresAt, arg.ID,
	)
	return err
}

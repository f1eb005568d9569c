package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const registerColumns = `id, club_id, business_date, opened_at, closed_at`

func scanRegister(row interface{ Scan(...interface{}) error }) (CashRegister, error) {
	var r CashRegister
	err := row.Scan(&r.ID, &r.ClubID, &r.BusinessDate, &r.OpenedAt, &r.ClosedAt)
	return r, err
}

type GetOpenRegisterParams struct {
	ClubID       int64
	BusinessDate string
}

func (q *Queries) GetOpenRegister(ctx context.Context, arg GetOpenRegisterParams) (CashRegister, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+registerColumns+`
		FROM cash_registers
		WHERE club_id = ? AND business_date = ? AND closed_at IS NULL`,
		arg.ClubID, arg.BusinessDate)
	return scanRegister(row)
}

type OpenRegisterParams struct {
	ClubID       int64
	BusinessDate string
	OpenedAt     time.Time
}

// OpenRegister opens the club's register for the given business date,
// returning the existing one when the date already has a register. A register
// closed early still receives late income for its date.
func (q *Queries) OpenRegister(ctx context.Context, arg OpenRegisterParams) (CashRegister, error) {
	existing, err := q.GetOpenRegister(ctx, GetOpenRegisterParams{ClubID: arg.ClubID, BusinessDate: arg.BusinessDate})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return CashRegister{}, err
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO cash_registers (club_id, business_date, opened_at) VALUES (?, ?, ?)`,
		arg.ClubID, arg.BusinessDate, arg.OpenedAt.UTC(),
	)
	if err != nil {
		return CashRegister{}, err
	}
	row := q.db.QueryRowContext(ctx, `
		SELECT `+registerColumns+`
		FROM cash_registers
		WHERE club_id = ? AND business_date = ?`,
		arg.ClubID, arg.BusinessDate)
	return scanRegister(row)
}

func (q *Queries) CloseRegister(ctx context.Context, id int64, closedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE cash_registers SET closed_at = ? WHERE id = ? AND closed_at IS NULL`,
		closedAt.UTC(), id)
	return err
}

const transactionColumns = `id, club_id, register_id, booking_id, client_id, type, category, amount, method, created_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.ClubID, &t.RegisterID, &t.BookingID, &t.ClientID,
		&t.Type, &t.Category, &t.Amount, &t.Method, &t.CreatedAt,
	)
	return t, err
}

type CreateTransactionParams struct {
	ClubID     int64
	RegisterID int64
	BookingID  sql.NullInt64
	ClientID   sql.NullInt64
	Type       string
	Category   string
	Amount     int64
	Method     string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (club_id, register_id, booking_id, client_id, type, category, amount, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ClubID, arg.RegisterID, arg.BookingID, arg.ClientID,
		arg.Type, arg.Category, arg.Amount, arg.Method,
	)
	if err != nil {
		return Transaction{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Transaction{}, err
	}
	row := q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (q *Queries) ListRegisterTransactions(ctx context.Context, registerID int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE register_id = ? ORDER BY id`, registerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

type RegisterTotals struct {
	Income  int64
	Expense int64
}

func (q *Queries) GetRegisterTotals(ctx context.Context, registerID int64) (RegisterTotals, error) {
	var totals RegisterTotals
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0)
		FROM transactions WHERE register_id = ?`,
		TransactionTypeIncome, TransactionTypeExpense, registerID,
	).Scan(&totals.Income, &totals.Expense)
	return totals, err
}

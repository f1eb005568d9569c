package store

import (
	"context"
	"database/sql"
	"time"
)

const bookingColumns = `id, club_id, court_id, client_id, guest_name, guest_phone, start_time,
	end_time, price, status, payment_status, payment_method, recurring_id, created_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.ClubID, &b.CourtID, &b.ClientID, &b.GuestName, &b.GuestPhone,
		&b.StartTime, &b.EndTime, &b.Price, &b.Status, &b.PaymentStatus,
		&b.PaymentMethod, &b.RecurringID, &b.CreatedAt,
	)
	return b, err
}

func (q *Queries) GetBookingByID(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

type CountOverlappingBookingsParams struct {
	CourtID   int64
	StartTime time.Time
	EndTime   time.Time
}

// CountOverlappingBookings applies the half-open interval test against all
// non-canceled bookings on the court.
func (q *Queries) CountOverlappingBookings(ctx context.Context, arg CountOverlappingBookingsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE court_id = ?
		  AND status != ?
		  AND start_time < ?
		  AND end_time > ?`,
		arg.CourtID, BookingStatusCanceled, arg.EndTime.UTC(), arg.StartTime.UTC(),
	).Scan(&count)
	return count, err
}

type ListCourtBookingsBetweenParams struct {
	CourtID   int64
	StartTime time.Time
	EndTime   time.Time
}

func (q *Queries) ListCourtBookingsBetween(ctx context.Context, arg ListCourtBookingsBetweenParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE court_id = ?
		  AND status != ?
		  AND start_time < ?
		  AND end_time > ?
		ORDER BY start_time`,
		arg.CourtID, BookingStatusCanceled, arg.EndTime.UTC(), arg.StartTime.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

type ListClubBookingsBetweenParams struct {
	ClubID    int64
	StartTime time.Time
	EndTime   time.Time
}

func (q *Queries) ListClubBookingsBetween(ctx context.Context, arg ListClubBookingsBetweenParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE club_id = ?
		  AND status != ?
		  AND start_time < ?
		  AND end_time > ?
		ORDER BY start_time`,
		arg.ClubID, BookingStatusCanceled, arg.EndTime.UTC(), arg.StartTime.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]Booking, error) {
	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type CreateBookingParams struct {
	ClubID        int64
	CourtID       int64
	ClientID      sql.NullInt64
	GuestName     sql.NullString
	GuestPhone    sql.NullString
	StartTime     time.Time
	EndTime       time.Time
	Price         int64
	Status        string
	PaymentStatus string
	PaymentMethod sql.NullString
	RecurringID   sql.NullString
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO bookings (club_id, court_id, client_id, guest_name, guest_phone,
			start_time, end_time, price, status, payment_status, payment_method, recurring_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ClubID, arg.CourtID, arg.ClientID, arg.GuestName, arg.GuestPhone,
		arg.StartTime.UTC(), arg.EndTime.UTC(), arg.Price, arg.Status,
		arg.PaymentStatus, arg.PaymentMethod, arg.RecurringID,
	)
	if err != nil {
		return Booking{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Booking{}, err
	}
	return q.GetBookingByID(ctx, id)
}

type UpdateBookingPaymentParams struct {
	ID            int64
	Status        string
	PaymentStatus string
	PaymentMethod sql.NullString
}

func (q *Queries) UpdateBookingPayment(ctx context.Context, arg UpdateBookingPaymentParams) (Booking, error) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE bookings SET status = ?, payment_status = ?, payment_method = ? WHERE id = ?`,
		arg.Status, arg.PaymentStatus, arg.PaymentMethod, arg.ID,
	)
	if err != nil {
		return Booking{}, err
	}
	return q.GetBookingByID(ctx, arg.ID)
}

func (q *Queries) UpdateBookingPaymentStatus(ctx context.Context, id int64, paymentStatus string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE bookings SET payment_status = ? WHERE id = ?`, paymentStatus, id)
	return err
}

func (q *Queries) CancelBooking(ctx context.Context, id int64) (Booking, error) {
	_, err := q.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, BookingStatusCanceled, id)
	if err != nil {
		return Booking{}, err
	}
	return q.GetBookingByID(ctx, id)
}

// SumBookingIncome totals every INCOME transaction ever recorded for the
// booking; payment status derives from this, not from any single call.
func (q *Queries) SumBookingIncome(ctx context.Context, bookingID int64) (int64, error) {
	var total sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT SUM(amount) FROM transactions WHERE booking_id = ? AND type = ?`,
		bookingID, TransactionTypeIncome,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

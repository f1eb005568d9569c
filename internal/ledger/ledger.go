// Package ledger records income against a club's daily cash register and
// derives booking payment status from the accumulated transactions.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

const businessDateLayout = "2006-01-02"

// Entry is one split-payment leg.
type Entry struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
}

// StatusFor derives a booking payment status from its price and the total
// paid so far.
func StatusFor(price, paid int64) string {
	switch {
	case paid <= 0:
		return store.PaymentStatusUnpaid
	case paid >= price:
		return store.PaymentStatusPaid
	default:
		return store.PaymentStatusPartial
	}
}

// Balance is the amount still owed on a booking.
func Balance(price, paid int64) int64 {
	balance := price - paid
	if balance < 0 {
		return 0
	}
	return balance
}

// OpenRegister returns the club's open register for the business day
// containing now (club-local), opening one if absent.
func OpenRegister(ctx context.Context, q *store.Queries, club store.Club, now time.Time) (store.CashRegister, error) {
	businessDate := now.In(club.Location()).Format(businessDateLayout)
	register, err := q.OpenRegister(ctx, store.OpenRegisterParams{
		ClubID:       club.ID,
		BusinessDate: businessDate,
		OpenedAt:     now,
	})
	if err != nil {
		return store.CashRegister{}, fmt.Errorf("open register for club %d on %s: %w", club.ID, businessDate, err)
	}
	return register, nil
}

// RecordBookingPayments appends one immutable INCOME transaction per positive
// entry to the given register and recomputes the booking's payment status
// from the sum of every INCOME transaction ever recorded against it, so
// top-up calls settle correctly.
func RecordBookingPayments(ctx context.Context, q *store.Queries, register store.CashRegister, booking store.Booking, entries []Entry, category string) (store.Booking, int64, error) {
	for _, entry := range entries {
		if entry.Amount <= 0 {
			continue
		}
		method := entry.Method
		if method == "" {
			method = "CASH"
		}
		_, err := q.CreateTransaction(ctx, store.CreateTransactionParams{
			ClubID:     booking.ClubID,
			RegisterID: register.ID,
			BookingID:  sql.NullInt64{Int64: booking.ID, Valid: true},
			ClientID:   booking.ClientID,
			Type:       store.TransactionTypeIncome,
			Category:   category,
			Amount:     entry.Amount,
			Method:     method,
		})
		if err != nil {
			return store.Booking{}, 0, fmt.Errorf("record payment for booking %d: %w", booking.ID, err)
		}
	}

	paid, err := q.SumBookingIncome(ctx, booking.ID)
	if err != nil {
		return store.Booking{}, 0, fmt.Errorf("sum payments for booking %d: %w", booking.ID, err)
	}

	status := StatusFor(booking.Price, paid)
	if status != booking.PaymentStatus {
		if err := q.UpdateBookingPaymentStatus(ctx, booking.ID, status); err != nil {
			return store.Booking{}, 0, fmt.Errorf("update payment status for booking %d: %w", booking.ID, err)
		}
		booking.PaymentStatus = status
	}
	return booking, paid, nil
}

// Total sums the entries; used to validate request payloads before touching
// the register.
func Total(entries []Entry) int64 {
	var total int64
	for _, entry := range entries {
		if entry.Amount > 0 {
			total += entry.Amount
		}
	}
	return total
}

package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/7Francus7/CourtOps-sub003/internal/store"
	"github.com/7Francus7/CourtOps-sub003/internal/testutil"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		price, paid int64
		want        string
	}{
		{10000, 0, store.PaymentStatusUnpaid},
		{10000, -50, store.PaymentStatusUnpaid},
		{10000, 4000, store.PaymentStatusPartial},
		{10000, 10000, store.PaymentStatusPaid},
		{10000, 12000, store.PaymentStatusPaid},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.price, tc.paid); got != tc.want {
			t.Errorf("StatusFor(%d, %d) = %s, want %s", tc.price, tc.paid, got, tc.want)
		}
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	if got := Balance(10000, 4000); got != 6000 {
		t.Errorf("Balance(10000, 4000) = %d, want 6000", got)
	}
	if got := Balance(10000, 12000); got != 0 {
		t.Errorf("overpaid balance should clamp to 0, got %d", got)
	}
}

func TestOpenRegisterReusesOpenOne(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	ctx := context.Background()
	now := time.Now()

	first, err := OpenRegister(ctx, database.Queries, club, now)
	if err != nil {
		t.Fatalf("open register: %v", err)
	}
	second, err := OpenRegister(ctx, database.Queries, club, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("reopen register: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same open register, got %d and %d", first.ID, second.ID)
	}
}

func TestRecordBookingPaymentsRecomputesStatus(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	ctx := context.Background()

	start := testutil.At(t, club, "2026-01-10", "10:00")
	booking, err := database.Queries.CreateBooking(ctx, store.CreateBookingParams{
		ClubID:        club.ID,
		CourtID:       court.ID,
		GuestName:     sql.NullString{String: "Walk-in", Valid: true},
		StartTime:     start,
		EndTime:       start.Add(90 * time.Minute),
		Price:         10000,
		Status:        store.BookingStatusPending,
		PaymentStatus: store.PaymentStatusUnpaid,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	register, err := OpenRegister(ctx, database.Queries, club, time.Now())
	if err != nil {
		t.Fatalf("open register: %v", err)
	}

	// Zero and negative entries are dropped; the blank method defaults.
	booking, paid, err := RecordBookingPayments(ctx, database.Queries, register, booking, []Entry{
		{Method: "", Amount: 4000},
		{Method: "CARD", Amount: 0},
		{Method: "CARD", Amount: -100},
	}, store.TransactionCategoryBooking)
	if err != nil {
		t.Fatalf("record payments: %v", err)
	}
	if paid != 4000 {
		t.Errorf("expected 4000 paid, got %d", paid)
	}
	if booking.PaymentStatus != store.PaymentStatusPartial {
		t.Errorf("expected PARTIAL, got %s", booking.PaymentStatus)
	}

	transactions, err := database.Queries.ListRegisterTransactions(ctx, register.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Method != "CASH" {
		t.Errorf("blank method should default to CASH, got %s", transactions[0].Method)
	}

	// A second call sums history, not just the new entries.
	booking, paid, err = RecordBookingPayments(ctx, database.Queries, register, booking, []Entry{
		{Method: "CARD", Amount: 6000},
	}, store.TransactionCategoryBooking)
	if err != nil {
		t.Fatalf("record second payment: %v", err)
	}
	if paid != 10000 {
		t.Errorf("expected cumulative 10000, got %d", paid)
	}
	if booking.PaymentStatus != store.PaymentStatusPaid {
		t.Errorf("expected PAID, got %s", booking.PaymentStatus)
	}

	totals, err := database.Queries.GetRegisterTotals(ctx, register.ID)
	if err != nil {
		t.Fatalf("register totals: %v", err)
	}
	if totals.Income != 10000 || totals.Expense != 0 {
		t.Errorf("expected income 10000 / expense 0, got %d / %d", totals.Income, totals.Expense)
	}
}

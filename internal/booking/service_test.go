package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/7Francus7/CourtOps-sub003/internal/ledger"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
	"github.com/7Francus7/CourtOps-sub003/internal/testutil"
)

func TestCreateSingleBookingFullyPaid(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{DefaultPrice: 10000})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	result, err := svc.Create(context.Background(), CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Ana Garcia",
		ClientPhone: "11 5555 1234",
		StartTime:   testutil.At(t, club, "2026-01-10", "10:00"),
		Payments: []ledger.Entry{
			{Method: "CASH", Amount: 6000},
			{Method: "CARD", Amount: 4000},
		},
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	if len(result.Bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(result.Bookings))
	}
	b := result.Bookings[0]
	if b.Price != 10000 {
		t.Errorf("expected price 10000, got %d", b.Price)
	}
	if b.PaymentStatus != store.PaymentStatusPaid {
		t.Errorf("expected PAID after split covering the price, got %s", b.PaymentStatus)
	}
	if b.RecurringID.Valid {
		t.Errorf("single booking must not carry a recurring id")
	}

	if result.Client == nil {
		t.Fatal("expected upserted client")
	}
	if want := store.NormalizePhone("11 5555 1234"); result.Client.Phone != want {
		t.Errorf("expected normalized phone %s, got %s", want, result.Client.Phone)
	}

	// Both legs land as separate register transactions.
	paid, err := database.Queries.SumBookingIncome(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("sum income: %v", err)
	}
	if paid != 10000 {
		t.Errorf("expected 10000 recorded, got %d", paid)
	}
}

func TestCreateBookingPartialDeposit(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{DefaultPrice: 10000})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	result, err := svc.Create(context.Background(), CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Bruno Diaz",
		ClientPhone: "1144440000",
		StartTime:   testutil.At(t, club, "2026-01-10", "10:00"),
		Payments:    []ledger.Entry{{Method: "CASH", Amount: 4000}},
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	b := result.Bookings[0]
	if b.PaymentStatus != store.PaymentStatusPartial {
		t.Fatalf("expected PARTIAL, got %s", b.PaymentStatus)
	}

	// Topping up the balance settles the booking.
	updated, paid, err := svc.AddPayments(context.Background(), b.ID, []ledger.Entry{{Method: "CARD", Amount: 6000}})
	if err != nil {
		t.Fatalf("add payments: %v", err)
	}
	if paid != 10000 {
		t.Errorf("expected total paid 10000, got %d", paid)
	}
	if updated.PaymentStatus != store.PaymentStatusPaid {
		t.Errorf("expected PAID after top-up, got %s", updated.PaymentStatus)
	}
	if ledger.Balance(updated.Price, paid) != 0 {
		t.Errorf("expected zero balance, got %d", ledger.Balance(updated.Price, paid))
	}
}

func TestCreateBookingConflict(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	req := CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Ana",
		ClientPhone: "1155551234",
		StartTime:   testutil.At(t, club, "2026-01-10", "10:00"),
	}
	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	req.ClientPhone = "1155559999"
	_, err := svc.Create(context.Background(), req)
	var conflict ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestCreateRecurringBookings(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{DefaultPrice: 10000})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	start := testutil.At(t, club, "2026-01-05", "19:00")
	end := testutil.At(t, club, "2026-01-19", "00:00")
	result, err := svc.Create(context.Background(), CreateRequest{
		ClubID:           club.ID,
		CourtID:          court.ID,
		ClientName:       "Carla",
		ClientPhone:      "1166660000",
		StartTime:        start,
		RecurringEndDate: &end,
		Payments:         []ledger.Entry{{Method: "CASH", Amount: 10000}},
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	if len(result.Bookings) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(result.Bookings))
	}
	groupID := result.Bookings[0].RecurringID
	if !groupID.Valid {
		t.Fatal("expected recurring group id")
	}
	for i, b := range result.Bookings {
		if !b.RecurringID.Valid || b.RecurringID.String != groupID.String {
			t.Errorf("occurrence %d: group id mismatch", i)
		}
	}

	// Payment attaches to the first occurrence only.
	if result.Bookings[0].PaymentStatus != store.PaymentStatusPaid {
		t.Errorf("first occurrence should be PAID, got %s", result.Bookings[0].PaymentStatus)
	}
	for _, b := range result.Bookings[1:] {
		if b.PaymentStatus != store.PaymentStatusUnpaid {
			t.Errorf("later occurrence should be UNPAID, got %s", b.PaymentStatus)
		}
	}
}

func TestCreateRecurringRejectsWholeBatchOnConflict(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	// Pre-book the second weekly occurrence.
	blocker := testutil.At(t, club, "2026-01-12", "19:00")
	if _, err := svc.Create(context.Background(), CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Blocker",
		ClientPhone: "1177770000",
		StartTime:   blocker,
	}); err != nil {
		t.Fatalf("blocker booking: %v", err)
	}

	start := testutil.At(t, club, "2026-01-05", "19:00")
	end := testutil.At(t, club, "2026-01-19", "00:00")
	_, err := svc.Create(context.Background(), CreateRequest{
		ClubID:           club.ID,
		CourtID:          court.ID,
		ClientName:       "Carla",
		ClientPhone:      "1166660000",
		StartTime:        start,
		RecurringEndDate: &end,
	})
	var conflict ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if got := conflict.Date.Format("2006-01-02"); got != "2026-01-12" {
		t.Errorf("conflict should name the colliding occurrence, got %s", got)
	}

	// Nothing from the batch may survive.
	listed, err := database.Queries.ListCourtBookingsBetween(context.Background(), store.ListCourtBookingsBetweenParams{
		CourtID:   court.ID,
		StartTime: start.AddDate(0, 0, -1),
		EndTime:   start.AddDate(0, 0, 30),
	})
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("expected only the blocker booking, got %d", len(listed))
	}
}

func TestCreateRejectsOutsideOperatingHours(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{OpenTime: "08:00", CloseTime: "23:00"})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	_, err := svc.Create(context.Background(), CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Ana",
		ClientPhone: "1155551234",
		StartTime:   testutil.At(t, club, "2026-01-10", "06:00"),
	})
	if !errors.Is(err, ErrOutsideOperatingHours) {
		t.Fatalf("expected ErrOutsideOperatingHours, got %v", err)
	}
}

func TestCreateGuestBooking(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	result, err := svc.Create(context.Background(), CreateRequest{
		ClubID:     club.ID,
		CourtID:    court.ID,
		Guest:      true,
		GuestName:  "Walk-in",
		GuestPhone: "1188880000",
		StartTime:  testutil.At(t, club, "2026-01-10", "10:00"),
	})
	if err != nil {
		t.Fatalf("create guest booking: %v", err)
	}

	b := result.Bookings[0]
	if result.Client != nil {
		t.Errorf("guest booking must not create a client")
	}
	if !b.GuestName.Valid || b.GuestName.String != "Walk-in" {
		t.Errorf("expected guest name on booking")
	}
}

func TestCreateReusesClientByNormalizedPhone(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	first, err := svc.Create(context.Background(), CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Ana",
		ClientPhone: "11 5555 1234",
		StartTime:   testutil.At(t, club, "2026-01-10", "10:00"),
	})
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Same number, different formatting.
	second, err := svc.Create(context.Background(), CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Ana Garcia",
		ClientPhone: "11-5555-1234",
		StartTime:   testutil.At(t, club, "2026-01-10", "11:30"),
	})
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}

	if first.Client.ID != second.Client.ID {
		t.Errorf("expected the same client, got %d and %d", first.Client.ID, second.Client.ID)
	}
	if second.Client.Name != "Ana Garcia" {
		t.Errorf("expected refreshed name, got %s", second.Client.Name)
	}
}

func TestCancelBookingIdempotent(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)

	result, err := svc.Create(context.Background(), CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Ana",
		ClientPhone: "1155551234",
		StartTime:   testutil.At(t, club, "2026-01-10", "10:00"),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	id := result.Bookings[0].ID

	canceled, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != store.BookingStatusCanceled {
		t.Errorf("expected CANCELED, got %s", canceled.Status)
	}

	again, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.Status != store.BookingStatusCanceled {
		t.Errorf("second cancel should keep CANCELED, got %s", again.Status)
	}

	// The freed slot is bookable again.
	if _, err := svc.Create(context.Background(), CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Bruno",
		ClientPhone: "1144440000",
		StartTime:   testutil.At(t, club, "2026-01-10", "10:00"),
	}); err != nil {
		t.Fatalf("rebooking freed slot: %v", err)
	}
}

func TestCreateMemberGetsPlanDiscount(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{DefaultPrice: 10000})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	svc := NewService(database, nil)
	ctx := context.Background()

	plan, err := database.Queries.CreateMembershipPlan(ctx, store.CreateMembershipPlanParams{
		ClubID:          testutil.NullInt(club.ID),
		Name:            "Monthly",
		Price:           20000,
		DurationDays:    30,
		DiscountPercent: 20,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	client, err := database.Queries.CreateClient(ctx, store.CreateClientParams{
		ClubID: club.ID,
		Name:   "Member",
		Phone:  store.NormalizePhone("1199990000"),
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	now := time.Now()
	if _, err := database.Queries.CreateMembership(ctx, store.CreateMembershipParams{
		ClubID:   club.ID,
		ClientID: client.ID,
		PlanID:   plan.ID,
		StartsAt: now,
		EndsAt:   now.AddDate(0, 0, 30),
	}); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	if err := database.Queries.SetClientMembership(ctx, store.SetClientMembershipParams{
		ID:                  client.ID,
		IsMember:            true,
		MembershipExpiresAt: testutil.NullTime(now.AddDate(0, 0, 30)),
	}); err != nil {
		t.Fatalf("flag member: %v", err)
	}

	result, err := svc.Create(ctx, CreateRequest{
		ClubID:      club.ID,
		CourtID:     court.ID,
		ClientName:  "Member",
		ClientPhone: "1199990000",
		StartTime:   testutil.At(t, club, "2026-01-10", "10:00"),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if got := result.Bookings[0].Price; got != 8000 {
		t.Errorf("expected 20%% member discount (8000), got %d", got)
	}
}

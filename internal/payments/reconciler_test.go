package payments

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/7Francus7/CourtOps-sub003/internal/db"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
	"github.com/7Francus7/CourtOps-sub003/internal/testutil"
)

type fakeGateway struct {
	payments     map[string]*Payment
	preapprovals map[string]*Preapproval
	lastToken    string
}

func (g *fakeGateway) GetPayment(_ context.Context, accessToken, id string) (*Payment, error) {
	g.lastToken = accessToken
	p, ok := g.payments[id]
	if !ok {
		return nil, ErrGatewayNotFound
	}
	return p, nil
}

func (g *fakeGateway) GetPreapproval(_ context.Context, accessToken, id string) (*Preapproval, error) {
	g.lastToken = accessToken
	p, ok := g.preapprovals[id]
	if !ok {
		return nil, ErrGatewayNotFound
	}
	return p, nil
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payments:     make(map[string]*Payment),
		preapprovals: make(map[string]*Preapproval),
	}
}

func createBooking(t *testing.T, database *db.DB, club store.Club, courtID int64, price int64) store.Booking {
	t.Helper()

	start := testutil.At(t, club, "2026-01-10", "10:00")
	booking, err := database.Queries.CreateBooking(context.Background(), store.CreateBookingParams{
		ClubID:        club.ID,
		CourtID:       courtID,
		GuestName:     sql.NullString{String: "Walk-in", Valid: true},
		StartTime:     start,
		EndTime:       start.Add(90 * time.Minute),
		Price:         price,
		Status:        store.BookingStatusPending,
		PaymentStatus: store.PaymentStatusUnpaid,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return booking
}

func TestProcessBookingPaymentConfirms(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	booking := createBooking(t, database, club, court.ID, 10000)

	gateway := newFakeGateway()
	gateway.payments["pay-1"] = &Payment{
		ID:                "pay-1",
		Status:            PaymentStatusApproved,
		TransactionAmount: 10000,
		ExternalReference: strconv.FormatInt(booking.ID, 10),
	}
	reconciler := NewReconciler(database, gateway, nil, "platform-token")

	outcome, err := reconciler.Process(context.Background(), WebhookEvent{Type: EventTypePayment, DataID: "pay-1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Status != "ok" {
		t.Errorf("expected ok, got %+v", outcome)
	}

	updated, err := database.Queries.GetBookingByID(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("reload booking: %v", err)
	}
	if updated.Status != store.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", updated.Status)
	}
	if updated.PaymentStatus != store.PaymentStatusPaid {
		t.Errorf("expected PAID, got %s", updated.PaymentStatus)
	}

	paid, err := database.Queries.SumBookingIncome(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("sum income: %v", err)
	}
	if paid != 10000 {
		t.Errorf("expected a 10000 deposit transaction, got %d", paid)
	}
}

func TestProcessBookingPaymentPartialAmount(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	booking := createBooking(t, database, club, court.ID, 10000)

	gateway := newFakeGateway()
	gateway.payments["pay-2"] = &Payment{
		ID:                "pay-2",
		Status:            PaymentStatusApproved,
		TransactionAmount: 4000,
		ExternalReference: strconv.FormatInt(booking.ID, 10),
	}
	reconciler := NewReconciler(database, gateway, nil, "platform-token")

	if _, err := reconciler.Process(context.Background(), WebhookEvent{Type: EventTypePayment, DataID: "pay-2"}); err != nil {
		t.Fatalf("process: %v", err)
	}

	updated, _ := database.Queries.GetBookingByID(context.Background(), booking.ID)
	if updated.PaymentStatus != store.PaymentStatusPartial {
		t.Errorf("expected PARTIAL for a deposit below price, got %s", updated.PaymentStatus)
	}
}

func TestProcessBookingPaymentReplayIsNoOp(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	booking := createBooking(t, database, club, court.ID, 10000)

	gateway := newFakeGateway()
	gateway.payments["pay-3"] = &Payment{
		ID:                "pay-3",
		Status:            PaymentStatusApproved,
		TransactionAmount: 10000,
		ExternalReference: strconv.FormatInt(booking.ID, 10),
	}
	reconciler := NewReconciler(database, gateway, nil, "platform-token")

	for i := 0; i < 3; i++ {
		outcome, err := reconciler.Process(context.Background(), WebhookEvent{Type: EventTypePayment, DataID: "pay-3"})
		if err != nil {
			t.Fatalf("process attempt %d: %v", i, err)
		}
		if outcome.Status != "ok" {
			t.Errorf("attempt %d: expected ok, got %+v", i, outcome)
		}
	}

	// The deposit must be recorded exactly once.
	paid, err := database.Queries.SumBookingIncome(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("sum income: %v", err)
	}
	if paid != 10000 {
		t.Errorf("replays must not duplicate the deposit, got %d", paid)
	}
}

func TestProcessIgnoresNonApprovedAndUnknown(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")
	booking := createBooking(t, database, club, court.ID, 10000)

	gateway := newFakeGateway()
	gateway.payments["pending"] = &Payment{
		ID:                "pending",
		Status:            "pending",
		TransactionAmount: 10000,
		ExternalReference: strconv.FormatInt(booking.ID, 10),
	}
	gateway.payments["orphan"] = &Payment{
		ID:                "orphan",
		Status:            PaymentStatusApproved,
		TransactionAmount: 10000,
		ExternalReference: "999999",
	}
	gateway.payments["garbled"] = &Payment{
		ID:                "garbled",
		Status:            PaymentStatusApproved,
		TransactionAmount: 10000,
		ExternalReference: "not-a-reference",
	}
	reconciler := NewReconciler(database, gateway, nil, "platform-token")

	for _, id := range []string{"pending", "orphan", "garbled", "missing-at-gateway", ""} {
		outcome, err := reconciler.Process(context.Background(), WebhookEvent{Type: EventTypePayment, DataID: id})
		if err != nil {
			t.Fatalf("process %q: %v", id, err)
		}
		if outcome.Status != "ignored" {
			t.Errorf("process %q: expected ignored, got %+v", id, outcome)
		}
	}

	updated, _ := database.Queries.GetBookingByID(context.Background(), booking.ID)
	if updated.PaymentStatus != store.PaymentStatusUnpaid {
		t.Errorf("ignored events must not touch the booking, got %s", updated.PaymentStatus)
	}
}

func TestProcessMembershipPaymentActivates(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	ctx := context.Background()

	plan, err := database.Queries.CreateMembershipPlan(ctx, store.CreateMembershipPlanParams{
		ClubID:          testutil.NullInt(club.ID),
		Name:            "Monthly",
		Price:           20000,
		DurationDays:    30,
		DiscountPercent: 15,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	client, err := database.Queries.CreateClient(ctx, store.CreateClientParams{
		ClubID: club.ID,
		Name:   "Ana",
		Phone:  "+5491155551234",
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	ref := Reference{Kind: ReferenceMembership, ClubID: club.ID, ClientID: client.ID, PlanID: plan.ID}
	gateway := newFakeGateway()
	gateway.payments["mp-1"] = &Payment{
		ID:                "mp-1",
		Status:            PaymentStatusApproved,
		TransactionAmount: 20000,
		ExternalReference: ref.String(),
	}
	reconciler := NewReconciler(database, gateway, nil, "platform-token")

	for i := 0; i < 2; i++ {
		outcome, err := reconciler.Process(ctx, WebhookEvent{Type: EventTypePayment, DataID: "mp-1", ClubID: club.ID})
		if err != nil {
			t.Fatalf("process attempt %d: %v", i, err)
		}
		if outcome.Status != "ok" {
			t.Errorf("attempt %d: expected ok, got %+v", i, outcome)
		}
	}

	memberships, err := database.Queries.ListClientMemberships(ctx, client.ID)
	if err != nil {
		t.Fatalf("list memberships: %v", err)
	}
	// The replay is cut off by the gateway event guard.
	if len(memberships) != 1 {
		t.Fatalf("expected exactly 1 membership, got %d", len(memberships))
	}
	if memberships[0].Status != store.MembershipStatusActive {
		t.Errorf("expected ACTIVE membership, got %s", memberships[0].Status)
	}

	reloaded, err := database.Queries.GetClientByID(ctx, client.ID)
	if err != nil {
		t.Fatalf("reload client: %v", err)
	}
	if !reloaded.IsMember {
		t.Error("client should be flagged as member")
	}
}

func TestProcessPreapprovalRefreshesSubscription(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	ctx := context.Background()

	ref := Reference{Kind: ReferenceSubscription, ClubID: club.ID, PlanID: 2}
	next := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	gateway := newFakeGateway()
	gateway.preapprovals["pre-1"] = &Preapproval{
		ID:                "pre-1",
		Status:            store.SubscriptionStatusAuthorized,
		ExternalReference: ref.String(),
		NextPaymentDate:   next,
	}
	reconciler := NewReconciler(database, gateway, nil, "platform-token")

	outcome, err := reconciler.Process(ctx, WebhookEvent{Type: EventTypePreapproval, DataID: "pre-1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Status != "ok" {
		t.Errorf("expected ok, got %+v", outcome)
	}

	reloaded, err := database.Queries.GetClubByID(ctx, club.ID)
	if err != nil {
		t.Fatalf("reload club: %v", err)
	}
	if reloaded.SubscriptionStatus != store.SubscriptionStatusAuthorized {
		t.Errorf("expected authorized, got %s", reloaded.SubscriptionStatus)
	}
	if !reloaded.SubscriptionPlanID.Valid || reloaded.SubscriptionPlanID.Int64 != 2 {
		t.Errorf("expected plan 2, got %+v", reloaded.SubscriptionPlanID)
	}
	if !reloaded.NextBillingAt.Valid || !reloaded.NextBillingAt.Time.Equal(next) {
		t.Errorf("expected next billing %v, got %+v", next, reloaded.NextBillingAt)
	}
}

func TestProcessMissingCredentialsIsAFault(t *testing.T) {
	database := testutil.NewTestDB(t)
	testutil.CreateClub(t, database, testutil.ClubParams{})

	reconciler := NewReconciler(database, newFakeGateway(), nil, "")

	_, err := reconciler.Process(context.Background(), WebhookEvent{Type: EventTypePayment, DataID: "pay-1"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestProcessUnhandledTypeIgnored(t *testing.T) {
	database := testutil.NewTestDB(t)
	reconciler := NewReconciler(database, newFakeGateway(), nil, "platform-token")

	outcome, err := reconciler.Process(context.Background(), WebhookEvent{Type: "plan", DataID: "x"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome.Status != "ignored" {
		t.Errorf("expected ignored, got %+v", outcome)
	}
}

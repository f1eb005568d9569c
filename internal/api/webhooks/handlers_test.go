package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/7Francus7/CourtOps-sub003/internal/payments"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
	"github.com/7Francus7/CourtOps-sub003/internal/testutil"
)

type fakeGateway struct {
	payments map[string]*payments.Payment
}

func (g *fakeGateway) GetPayment(_ context.Context, _, id string) (*payments.Payment, error) {
	p, ok := g.payments[id]
	if !ok {
		return nil, payments.ErrGatewayNotFound
	}
	return p, nil
}

func (g *fakeGateway) GetPreapproval(_ context.Context, _, _ string) (*payments.Preapproval, error) {
	return nil, payments.ErrGatewayNotFound
}

func TestHandleGatewayWebhook(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")

	start := testutil.At(t, club, "2026-01-10", "10:00")
	booking, err := database.Queries.CreateBooking(context.Background(), store.CreateBookingParams{
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

	gateway := &fakeGateway{payments: map[string]*payments.Payment{
		"pay-1": {
			ID:                "pay-1",
			Status:            payments.PaymentStatusApproved,
			TransactionAmount: 10000,
			ExternalReference: strconv.FormatInt(booking.ID, 10),
		},
	}}
	InitHandlers(payments.NewReconciler(database, gateway, nil, "platform-token"))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/payments/webhook", HandleGatewayWebhook)
	server := httptest.NewServer(mux)
	defer server.Close()

	post := func(t *testing.T, body string) (int, map[string]any) {
		t.Helper()
		res, err := http.Post(server.URL+"/api/v1/payments/webhook?club_id="+strconv.FormatInt(club.ID, 10), "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post webhook: %v", err)
		}
		defer res.Body.Close()
		var decoded map[string]any
		if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return res.StatusCode, decoded
	}

	t.Run("approved payment confirms booking", func(t *testing.T) {
		status, body := post(t, `{"type":"payment","data":{"id":"pay-1"}}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if body["status"] != "ok" {
			t.Errorf("expected ok, got %v", body)
		}

		updated, err := database.Queries.GetBookingByID(context.Background(), booking.ID)
		if err != nil {
			t.Fatalf("reload booking: %v", err)
		}
		if updated.PaymentStatus != store.PaymentStatusPaid {
			t.Errorf("expected PAID, got %s", updated.PaymentStatus)
		}
	})

	t.Run("replay acknowledged without reapplying", func(t *testing.T) {
		status, body := post(t, `{"type":"payment","data":{"id":"pay-1"}}`)
		if status != http.StatusOK || body["status"] != "ok" {
			t.Fatalf("expected 200 ok, got %d %v", status, body)
		}
		paid, err := database.Queries.SumBookingIncome(context.Background(), booking.ID)
		if err != nil {
			t.Fatalf("sum income: %v", err)
		}
		if paid != 10000 {
			t.Errorf("replay must not duplicate the deposit, got %d", paid)
		}
	})

	t.Run("unknown payment id is ignored", func(t *testing.T) {
		status, body := post(t, `{"type":"payment","data":{"id":"nope"}}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if body["status"] != "ignored" {
			t.Errorf("expected ignored, got %v", body)
		}
	})

	t.Run("unhandled event type is ignored", func(t *testing.T) {
		status, body := post(t, `{"type":"plan","data":{"id":"x"}}`)
		if status != http.StatusOK || body["status"] != "ignored" {
			t.Errorf("expected 200 ignored, got %d %v", status, body)
		}
	})

	t.Run("unparseable body is acknowledged", func(t *testing.T) {
		status, body := post(t, `{not json`)
		if status != http.StatusOK || body["status"] != "ignored" {
			t.Errorf("expected 200 ignored, got %d %v", status, body)
		}
	})
}

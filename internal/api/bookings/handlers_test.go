package bookings

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/7Francus7/CourtOps-sub003/internal/booking"
	"github.com/7Francus7/CourtOps-sub003/internal/ratelimit"
	"github.com/7Francus7/CourtOps-sub003/internal/testutil"
)

func TestBookingHandlers(t *testing.T) {
	database := testutil.NewTestDB(t)
	club := testutil.CreateClub(t, database, testutil.ClubParams{DefaultPrice: 10000})
	court := testutil.CreateCourt(t, database, club.ID, "Court 1")

	service := booking.NewService(database, nil)
	InitHandlers(database.Queries, service, ratelimit.NewLimiter(&ratelimit.Config{
		MaxPerWindow: 100,
		Window:       time.Hour,
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/clubs/{club_id}/bookings", HandleCreate)
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/bookings", HandleListDay)
	mux.HandleFunc("POST /api/v1/public/bookings", HandlePublicCreate)
	mux.HandleFunc("POST /api/v1/bookings/{id}/payments", HandleAddPayments)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", HandleCancel)
	server := httptest.NewServer(mux)
	defer server.Close()

	post := func(t *testing.T, path, body string) (int, map[string]any) {
		t.Helper()
		res, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post %s: %v", path, err)
		}
		defer res.Body.Close()
		var decoded map[string]any
		if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return res.StatusCode, decoded
	}

	startTime := testutil.At(t, club, "2026-01-10", "10:00").Format(time.RFC3339)
	clubPath := fmt.Sprintf("/api/v1/clubs/%d/bookings", club.ID)

	var bookingID float64

	t.Run("staff booking with deposit", func(t *testing.T) {
		status, body := post(t, clubPath, fmt.Sprintf(`{
			"courtId": %d,
			"clientName": "Ana Garcia",
			"clientPhone": "1155551234",
			"startTime": %q,
			"payments": [{"method": "CASH", "amount": 4000}]
		}`, court.ID, startTime))
		if status != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %v", status, body)
		}
		if body["success"] != true || body["count"] != float64(1) {
			t.Errorf("unexpected response: %v", body)
		}

		created, ok := body["booking"].(map[string]any)
		if !ok {
			t.Fatalf("missing booking in response: %v", body)
		}
		if created["paymentStatus"] != "PARTIAL" {
			t.Errorf("expected PARTIAL, got %v", created["paymentStatus"])
		}
		bookingID = created["id"].(float64)
	})

	t.Run("double booking rejected with conflict", func(t *testing.T) {
		status, body := post(t, clubPath, fmt.Sprintf(`{
			"courtId": %d,
			"clientName": "Bruno",
			"clientPhone": "1144440000",
			"startTime": %q
		}`, court.ID, startTime))
		if status != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %v", status, body)
		}
		if body["success"] != false {
			t.Errorf("expected success false, got %v", body)
		}
		msg, _ := body["error"].(string)
		if !strings.Contains(msg, "no longer available") {
			t.Errorf("expected slot-no-longer-available error, got %q", msg)
		}
	})

	t.Run("top-up settles booking", func(t *testing.T) {
		status, body := post(t, fmt.Sprintf("/api/v1/bookings/%d/payments", int64(bookingID)),
			`{"payments": [{"method": "CARD", "amount": 6000}]}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %v", status, body)
		}
		if body["paid"] != float64(10000) || body["balance"] != float64(0) {
			t.Errorf("expected paid 10000 balance 0, got %v", body)
		}
		updated := body["booking"].(map[string]any)
		if updated["paymentStatus"] != "PAID" {
			t.Errorf("expected PAID, got %v", updated["paymentStatus"])
		}
	})

	t.Run("day listing returns the booking", func(t *testing.T) {
		res, err := http.Get(server.URL + clubPath + "?date=2026-01-10")
		if err != nil {
			t.Fatalf("get bookings: %v", err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.StatusCode)
		}
		var decoded struct {
			Date     string           `json:"date"`
			Bookings []map[string]any `json:"bookings"`
		}
		if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(decoded.Bookings) != 1 {
			t.Fatalf("expected 1 booking, got %d", len(decoded.Bookings))
		}
	})

	t.Run("public booking on a free slot", func(t *testing.T) {
		status, body := post(t, "/api/v1/public/bookings", fmt.Sprintf(`{
			"clubId": %d,
			"courtId": %d,
			"date": "2026-01-10",
			"time": "11:30",
			"guest": true,
			"guestName": "Walk-in",
			"guestPhone": "1188880000"
		}`, club.ID, court.ID))
		if status != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %v", status, body)
		}
		if body["success"] != true || body["bookingId"] == nil {
			t.Errorf("unexpected response: %v", body)
		}
	})

	t.Run("public booking on a taken slot conflicts", func(t *testing.T) {
		status, body := post(t, "/api/v1/public/bookings", fmt.Sprintf(`{
			"clubId": %d,
			"courtId": %d,
			"date": "2026-01-10",
			"time": "10:00",
			"guest": true,
			"guestName": "Late",
			"guestPhone": "1177770000"
		}`, club.ID, court.ID))
		if status != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %v", status, body)
		}
	})

	t.Run("cancel frees the slot", func(t *testing.T) {
		status, body := post(t, fmt.Sprintf("/api/v1/bookings/%d/cancel", int64(bookingID)), `{}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %v", status, body)
		}
		canceled := body["booking"].(map[string]any)
		if canceled["status"] != "CANCELED" {
			t.Errorf("expected CANCELED, got %v", canceled["status"])
		}

		status, _ = post(t, "/api/v1/public/bookings", fmt.Sprintf(`{
			"clubId": %d,
			"courtId": %d,
			"date": "2026-01-10",
			"time": "10:00",
			"guest": true,
			"guestName": "Again",
			"guestPhone": "1166660000"
		}`, club.ID, court.ID))
		if status != http.StatusCreated {
			t.Errorf("freed slot should be bookable, got %d", status)
		}
	})

	t.Run("unknown booking returns 404", func(t *testing.T) {
		status, _ := post(t, "/api/v1/bookings/999999/cancel", `{}`)
		if status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}
	})
}

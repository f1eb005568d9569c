// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/7Francus7/CourtOps-sub003/internal/api/apiutil"
	"github.com/7Francus7/CourtOps-sub003/internal/booking"
	"github.com/7Francus7/CourtOps-sub003/internal/ledger"
	"github.com/7Francus7/CourtOps-sub003/internal/ratelimit"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

var (
	queries       *store.Queries
	service       *booking.Service
	publicLimiter *ratelimit.Limiter
	initOnce      sync.Once
)

const bookingsQueryTimeout = 5 * time.Second

const (
	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04"
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries, svc *booking.Service, limiter *ratelimit.Limiter) {
	if q == nil || svc == nil {
		return
	}
	initOnce.Do(func() {
		queries = q
		service = svc
		publicLimiter = limiter
	})
}

type paymentEntry struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
}

type createRequest struct {
	CourtID          int64          `json:"courtId"`
	ClientName       string         `json:"clientName"`
	ClientPhone      string         `json:"clientPhone"`
	ClientEmail      string         `json:"clientEmail"`
	StartTime        string         `json:"startTime"`
	RecurringEndDate string         `json:"recurringEndDate"`
	Payments         []paymentEntry `json:"payments"`

	// Legacy single-payment shape still sent by older clients.
	PaymentMethod string `json:"paymentMethod"`
	AdvanceAmount int64  `json:"advanceAmount"`
}

type bookingView struct {
	ID            int64  `json:"id"`
	ClubID        int64  `json:"clubId"`
	CourtID       int64  `json:"courtId"`
	ClientID      *int64 `json:"clientId,omitempty"`
	GuestName     string `json:"guestName,omitempty"`
	GuestPhone    string `json:"guestPhone,omitempty"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Price         int64  `json:"price"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	RecurringID   string `json:"recurringId,omitempty"`
}

func viewOf(b store.Booking) bookingView {
	view := bookingView{
		ID:            b.ID,
		ClubID:        b.ClubID,
		CourtID:       b.CourtID,
		StartTime:     b.StartTime.UTC().Format(time.RFC3339),
		EndTime:       b.EndTime.UTC().Format(time.RFC3339),
		Price:         b.Price,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
	}
	if b.ClientID.Valid {
		id := b.ClientID.Int64
		view.ClientID = &id
	}
	if b.GuestName.Valid {
		view.GuestName = b.GuestName.String
	}
	if b.GuestPhone.Valid {
		view.GuestPhone = b.GuestPhone.String
	}
	if b.RecurringID.Valid {
		view.RecurringID = b.RecurringID.String
	}
	return view
}

// POST /api/v1/clubs/{club_id}/bookings
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if service == nil {
		logger.Error().Msg("Booking service not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	clubID, ok := apiutil.PathID(r, "club_id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Club ID is required")
		return
	}

	var body createRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, status, msg := buildCreateRequest(r.Context(), clubID, body, false)
	if msg != "" {
		apiutil.WriteError(w, status, msg)
		return
	}

	result, err := service.Create(r.Context(), req)
	if err != nil {
		writeCreateError(w, r, err)
		return
	}

	resp := map[string]any{
		"success": true,
		"count":   len(result.Bookings),
		"booking": viewOf(result.Bookings[0]),
	}
	if result.Client != nil {
		resp["client"] = map[string]any{
			"id":    result.Client.ID,
			"name":  result.Client.Name,
			"phone": result.Client.Phone,
		}
	}
	apiutil.WriteJSON(w, http.StatusCreated, resp)
}

type publicCreateRequest struct {
	ClubID  int64  `json:"clubId"`
	CourtID int64  `json:"courtId"`
	Date    string `json:"date"`
	Time    string `json:"time"`

	Guest       bool   `json:"guest"`
	GuestName   string `json:"guestName"`
	GuestPhone  string `json:"guestPhone"`
	ClientName  string `json:"clientName"`
	ClientPhone string `json:"clientPhone"`
	ClientEmail string `json:"clientEmail"`
}

// POST /api/v1/public/bookings
func HandlePublicCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if service == nil {
		logger.Error().Msg("Booking service not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if publicLimiter != nil {
		ip := ratelimit.ClientIP(r)
		if !publicLimiter.Allow(ip) {
			logger.Warn().Str("ip", ip).Msg("Public booking rate limited")
			apiutil.WriteError(w, http.StatusTooManyRequests, "Too many booking attempts, try again later")
			return
		}
	}

	var body publicCreateRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.ClubID <= 0 || body.CourtID <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "Club and court are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	club, err := queries.GetClubByID(ctx, body.ClubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Club not found")
			return
		}
		logger.Error().Err(err).Int64("club_id", body.ClubID).Msg("Failed to load club")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load club")
		return
	}

	start, err := parseLocalDateTime(body.Date, body.Time, club.Location())
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid date or time")
		return
	}

	req := booking.CreateRequest{
		ClubID:    body.ClubID,
		CourtID:   body.CourtID,
		StartTime: start,
	}
	if body.Guest {
		if strings.TrimSpace(body.GuestName) == "" || strings.TrimSpace(body.GuestPhone) == "" {
			apiutil.WriteError(w, http.StatusBadRequest, "Guest name and phone are required")
			return
		}
		req.Guest = true
		req.GuestName = body.GuestName
		req.GuestPhone = body.GuestPhone
	} else {
		if strings.TrimSpace(body.ClientName) == "" || strings.TrimSpace(body.ClientPhone) == "" {
			apiutil.WriteError(w, http.StatusBadRequest, "Client name and phone are required")
			return
		}
		req.ClientName = body.ClientName
		req.ClientPhone = body.ClientPhone
		req.ClientEmail = body.ClientEmail
	}

	result, err := service.Create(r.Context(), req)
	if err != nil {
		writeCreateError(w, r, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"bookingId": result.Bookings[0].ID,
	})
}

type paymentsRequest struct {
	Payments []paymentEntry `json:"payments"`
}

// POST /api/v1/bookings/{id}/payments
func HandleAddPayments(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if service == nil {
		logger.Error().Msg("Booking service not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	bookingID, ok := apiutil.PathID(r, "id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Booking ID is required")
		return
	}

	var body paymentsRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entries := toLedgerEntries(body.Payments)
	if ledger.Total(entries) <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "At least one positive payment is required")
		return
	}

	updated, paid, err := service.AddPayments(r.Context(), bookingID, entries)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			apiutil.WriteError(w, http.StatusNotFound, "Booking not found")
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to record payments")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to record payments")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"booking": viewOf(updated),
		"paid":    paid,
		"balance": ledger.Balance(updated.Price, paid),
	})
}

// POST /api/v1/bookings/{id}/cancel
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if service == nil {
		logger.Error().Msg("Booking service not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	bookingID, ok := apiutil.PathID(r, "id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Booking ID is required")
		return
	}

	canceled, err := service.Cancel(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			apiutil.WriteError(w, http.StatusNotFound, "Booking not found")
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to cancel booking")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to cancel booking")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"booking": viewOf(canceled),
	})
}

// GET /api/v1/clubs/{club_id}/bookings?date=YYYY-MM-DD
func HandleListDay(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	clubID, ok := apiutil.PathID(r, "club_id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Club ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	club, err := queries.GetClubByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Club not found")
			return
		}
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to load club")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load club")
		return
	}

	loc := club.Location()
	date, ok := apiutil.QueryDate(r, "date", loc)
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	dayStart, _ := time.ParseInLocation(dateLayout, date, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	listed, err := queries.ListClubBookingsBetween(ctx, store.ListClubBookingsBetweenParams{
		ClubID:    clubID,
		StartTime: dayStart,
		EndTime:   dayEnd,
	})
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Str("date", date).Msg("Failed to list bookings")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list bookings")
		return
	}

	views := make([]bookingView, 0, len(listed))
	for _, b := range listed {
		views = append(views, viewOf(b))
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"date":     date,
		"bookings": views,
	})
}

// buildCreateRequest validates the staff payload and resolves the club-local
// timestamps. Returns a non-empty message on rejection.
func buildCreateRequest(ctx context.Context, clubID int64, body createRequest, guest bool) (booking.CreateRequest, int, string) {
	if body.CourtID <= 0 {
		return booking.CreateRequest{}, http.StatusBadRequest, "Court ID is required"
	}
	if !guest && (strings.TrimSpace(body.ClientName) == "" || strings.TrimSpace(body.ClientPhone) == "") {
		return booking.CreateRequest{}, http.StatusBadRequest, "Client name and phone are required"
	}

	start, err := time.Parse(time.RFC3339, body.StartTime)
	if err != nil {
		return booking.CreateRequest{}, http.StatusBadRequest, "Invalid startTime, expected RFC3339"
	}

	queryCtx, cancel := context.WithTimeout(ctx, bookingsQueryTimeout)
	defer cancel()
	club, err := queries.GetClubByID(queryCtx, clubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.CreateRequest{}, http.StatusNotFound, "Club not found"
		}
		return booking.CreateRequest{}, http.StatusInternalServerError, "Failed to load club"
	}

	req := booking.CreateRequest{
		ClubID:        clubID,
		CourtID:       body.CourtID,
		ClientName:    body.ClientName,
		ClientPhone:   body.ClientPhone,
		ClientEmail:   body.ClientEmail,
		Guest:         guest,
		StartTime:     start,
		PaymentMethod: body.PaymentMethod,
	}

	if body.RecurringEndDate != "" {
		end, err := time.ParseInLocation(dateLayout, body.RecurringEndDate, club.Location())
		if err != nil {
			return booking.CreateRequest{}, http.StatusBadRequest, "Invalid recurringEndDate, expected YYYY-MM-DD"
		}
		req.RecurringEndDate = &end
	}

	req.Payments = toLedgerEntries(body.Payments)
	if len(req.Payments) == 0 && body.AdvanceAmount > 0 {
		req.Payments = []ledger.Entry{{Method: body.PaymentMethod, Amount: body.AdvanceAmount}}
	}
	return req, 0, ""
}

func writeCreateError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		apiutil.WriteError(w, http.StatusConflict, conflict.Error())
	case errors.Is(err, booking.ErrClubNotFound):
		apiutil.WriteError(w, http.StatusNotFound, "Club not found")
	case errors.Is(err, booking.ErrCourtNotFound):
		apiutil.WriteError(w, http.StatusNotFound, "Court not found")
	case errors.Is(err, booking.ErrCourtInactive):
		apiutil.WriteError(w, http.StatusConflict, "Court is not active")
	case errors.Is(err, booking.ErrOutsideOperatingHours):
		apiutil.WriteError(w, http.StatusBadRequest, "Start time is outside operating hours")
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create booking")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create booking")
	}
}

func toLedgerEntries(payments []paymentEntry) []ledger.Entry {
	entries := make([]ledger.Entry, 0, len(payments))
	for _, p := range payments {
		entries = append(entries, ledger.Entry{Method: p.Method, Amount: p.Amount})
	}
	return entries
}

func parseLocalDateTime(date, tod string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+timeOfDayLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(tod), loc)
}

// Package booking implements the creation pipeline: recurrence expansion,
// overlap validation, price resolution, persistence, and payment recording.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	appdb "github.com/7Francus7/CourtOps-sub003/internal/db"
	"github.com/7Francus7/CourtOps-sub003/internal/events"
	"github.com/7Francus7/CourtOps-sub003/internal/ledger"
	"github.com/7Francus7/CourtOps-sub003/internal/pricing"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

var (
	ErrClubNotFound          = errors.New("club not found")
	ErrCourtNotFound         = errors.New("court not found")
	ErrCourtInactive         = errors.New("court is not active")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrOutsideOperatingHours = errors.New("start time is outside operating hours")
)

// ConflictError reports the occurrence that collided with an existing
// booking. One conflict rejects the whole recurring batch.
type ConflictError struct {
	Date time.Time
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("slot no longer available on %s", e.Date.Format("2006-01-02 15:04"))
}

type Service struct {
	db     *appdb.DB
	events *events.Publisher
	now    func() time.Time

	mu         sync.Mutex
	courtLocks map[int64]*sync.Mutex
}

func NewService(database *appdb.DB, publisher *events.Publisher) *Service {
	return &Service{
		db:         database,
		events:     publisher,
		now:        time.Now,
		courtLocks: make(map[int64]*sync.Mutex),
	}
}

// SetNowFunc overrides the service clock. Test hook.
func (s *Service) SetNowFunc(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// lockCourt serializes validate-and-insert per court. Combined with the
// partial unique index on (court_id, start_time) this closes the
// check-then-act window between the overlap query and the insert.
func (s *Service) lockCourt(courtID int64) func() {
	s.mu.Lock()
	lock, ok := s.courtLocks[courtID]
	if !ok {
		lock = &sync.Mutex{}
		s.courtLocks[courtID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

type CreateRequest struct {
	ClubID  int64
	CourtID int64

	// Registered-client identity; ignored when Guest is set.
	ClientName  string
	ClientPhone string
	ClientEmail string

	// Guest identity for the unauthenticated public flow.
	Guest      bool
	GuestName  string
	GuestPhone string

	StartTime        time.Time
	RecurringEndDate *time.Time

	Payments      []ledger.Entry
	PaymentMethod string
}

type CreateResult struct {
	Bookings []store.Booking
	Client   *store.Client
}

// Create runs the full booking pipeline. All occurrences of a recurring
// request are created atomically; payments apply to the first occurrence
// only. Post-commit side effects are best-effort.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	club, err := s.db.Queries.GetClubByID(ctx, req.ClubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("load club %d: %w", req.ClubID, err)
	}

	court, err := s.db.Queries.GetCourtByID(ctx, req.CourtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, fmt.Errorf("load court %d: %w", req.CourtID, err)
	}
	if court.ClubID != club.ID {
		return nil, ErrCourtNotFound
	}
	if !court.Active {
		return nil, ErrCourtInactive
	}

	loc := club.Location()
	localStart := req.StartTime.In(loc)
	if !withinOperatingHours(club, localStart) {
		return nil, ErrOutsideOperatingHours
	}

	duration := club.SlotDurationMin
	if court.DurationMin.Valid && court.DurationMin.Int64 > 0 {
		duration = court.DurationMin.Int64
	}
	step := time.Duration(duration) * time.Minute

	occurrences := ExpandWeekly(localStart, req.RecurringEndDate)
	recurringID := sql.NullString{}
	if len(occurrences) > 1 {
		recurringID = sql.NullString{String: uuid.NewString(), Valid: true}
	}

	unlock := s.lockCourt(court.ID)
	defer unlock()

	result := &CreateResult{}
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries

		var client *store.Client
		if !req.Guest && req.ClientPhone != "" {
			upserted, err := upsertClient(ctx, q, club.ID, req.ClientName, req.ClientPhone, req.ClientEmail)
			if err != nil {
				return err
			}
			client = &upserted
		}
		result.Client = client

		isMember := client != nil && client.IsMember
		var discount int64
		if isMember {
			discount = pricing.ActiveDiscount(ctx, q, client.ID, s.now())
		}

		clientID := sql.NullInt64{}
		if client != nil {
			clientID = sql.NullInt64{Int64: client.ID, Valid: true}
		}
		guestName := sql.NullString{}
		guestPhone := sql.NullString{}
		if req.Guest {
			guestName = nullString(req.GuestName)
			guestPhone = nullString(store.NormalizePhone(req.GuestPhone))
		}

		result.Bookings = result.Bookings[:0]
		for i, start := range occurrences {
			end := start.Add(step)

			overlaps, err := q.CountOverlappingBookings(ctx, store.CountOverlappingBookingsParams{
				CourtID:   court.ID,
				StartTime: start,
				EndTime:   end,
			})
			if err != nil {
				return fmt.Errorf("check overlap on %s: %w", start.Format("2006-01-02"), err)
			}
			if overlaps > 0 {
				return ConflictError{Date: start}
			}

			price := pricing.Resolve(ctx, q, club.ID, pricing.ResolveInput{
				At:              start,
				IsMember:        isMember,
				DiscountPercent: discount,
			})

			method := sql.NullString{}
			if i == 0 && req.PaymentMethod != "" {
				method = nullString(req.PaymentMethod)
			}

			created, err := q.CreateBooking(ctx, store.CreateBookingParams{
				ClubID:        club.ID,
				CourtID:       court.ID,
				ClientID:      clientID,
				GuestName:     guestName,
				GuestPhone:    guestPhone,
				StartTime:     start,
				EndTime:       end,
				Price:         price,
				Status:        store.BookingStatusPending,
				PaymentStatus: store.PaymentStatusUnpaid,
				PaymentMethod: method,
				RecurringID:   recurringID,
			})
			if err != nil {
				if isUniqueViolation(err) {
					return ConflictError{Date: start}
				}
				return fmt.Errorf("create booking on %s: %w", start.Format("2006-01-02"), err)
			}
			result.Bookings = append(result.Bookings, created)
		}

		// Payments only ever attach to the first occurrence; later
		// occurrences of a series start UNPAID.
		if ledger.Total(req.Payments) > 0 {
			register, err := ledger.OpenRegister(ctx, q, club, s.now())
			if err != nil {
				return err
			}
			updated, _, err := ledger.RecordBookingPayments(ctx, q, register, result.Bookings[0], req.Payments, store.TransactionCategoryBooking)
			if err != nil {
				return err
			}
			result.Bookings[0] = updated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCreated(ctx, club.ID, result)
	return result, nil
}

// AddPayments records top-up payments against an existing booking and
// recomputes its payment status from the full transaction history.
func (s *Service) AddPayments(ctx context.Context, bookingID int64, entries []ledger.Entry) (store.Booking, int64, error) {
	booking, err := s.db.Queries.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Booking{}, 0, ErrBookingNotFound
		}
		return store.Booking{}, 0, fmt.Errorf("load booking %d: %w", bookingID, err)
	}

	club, err := s.db.Queries.GetClubByID(ctx, booking.ClubID)
	if err != nil {
		return store.Booking{}, 0, fmt.Errorf("load club %d: %w", booking.ClubID, err)
	}

	var paid int64
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		register, err := ledger.OpenRegister(ctx, txdb.Queries, club, s.now())
		if err != nil {
			return err
		}
		booking, paid, err = ledger.RecordBookingPayments(ctx, txdb.Queries, register, booking, entries, store.TransactionCategoryBooking)
		return err
	})
	if err != nil {
		return store.Booking{}, 0, err
	}

	s.events.Publish(ctx, events.KeyPaymentReceived, events.PaymentReceived{
		ClubID:        club.ID,
		BookingID:     booking.ID,
		Amount:        ledger.Total(entries),
		PaymentStatus: booking.PaymentStatus,
		Source:        "register",
	})
	return booking, paid, nil
}

// Cancel soft-cancels a booking; canceled bookings are retained and free
// their slot.
func (s *Service) Cancel(ctx context.Context, bookingID int64) (store.Booking, error) {
	booking, err := s.db.Queries.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Booking{}, ErrBookingNotFound
		}
		return store.Booking{}, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if booking.Status == store.BookingStatusCanceled {
		return booking, nil
	}

	canceled, err := s.db.Queries.CancelBooking(ctx, bookingID)
	if err != nil {
		return store.Booking{}, fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}

	s.events.Publish(ctx, events.KeyBookingCanceled, events.BookingCanceled{
		ClubID:    canceled.ClubID,
		BookingID: canceled.ID,
		CourtID:   canceled.CourtID,
	})
	return canceled, nil
}

func (s *Service) publishCreated(ctx context.Context, clubID int64, result *CreateResult) {
	clientName := ""
	clientPhone := ""
	if result.Client != nil {
		clientName = result.Client.Name
		clientPhone = result.Client.Phone
	}
	for _, b := range result.Bookings {
		payload := events.BookingCreated{
			ClubID:      clubID,
			BookingID:   b.ID,
			CourtID:     b.CourtID,
			StartTime:   b.StartTime.UTC().Format(time.RFC3339),
			EndTime:     b.EndTime.UTC().Format(time.RFC3339),
			ClientName:  clientName,
			ClientPhone: clientPhone,
		}
		if b.RecurringID.Valid {
			payload.RecurringID = b.RecurringID.String
		}
		s.events.Publish(ctx, events.KeyBookingCreated, payload)
	}
}

// upsertClient finds the club's client by normalized phone, creating it on
// first booking and refreshing name/email with any new information supplied.
func upsertClient(ctx context.Context, q *store.Queries, clubID int64, name, phone, email string) (store.Client, error) {
	normalized := store.NormalizePhone(phone)

	client, err := q.GetClientByPhone(ctx, store.GetClientByPhoneParams{ClubID: clubID, Phone: normalized})
	if errors.Is(err, sql.ErrNoRows) {
		created, err := q.CreateClient(ctx, store.CreateClientParams{
			ClubID: clubID,
			Name:   name,
			Phone:  normalized,
			Email:  nullString(email),
		})
		if err != nil {
			return store.Client{}, fmt.Errorf("create client: %w", err)
		}
		return created, nil
	}
	if err != nil {
		return store.Client{}, fmt.Errorf("find client by phone: %w", err)
	}

	updated, err := q.UpdateClientContact(ctx, store.UpdateClientContactParams{
		ID:    client.ID,
		Name:  name,
		Email: nullString(email),
	})
	if err != nil {
		return store.Client{}, fmt.Errorf("update client %d: %w", client.ID, err)
	}
	return updated, nil
}

// withinOperatingHours checks the local time-of-day against the club's open
// window, treating close <= open as closing past midnight.
func withinOperatingHours(club store.Club, local time.Time) bool {
	open, err := minutesOfDay(club.OpenTime)
	if err != nil {
		log.Error().Err(err).Int64("club_id", club.ID).Msg("Invalid club open time")
		return false
	}
	closeAt, err := minutesOfDay(club.CloseTime)
	if err != nil {
		log.Error().Err(err).Int64("club_id", club.ID).Msg("Invalid club close time")
		return false
	}

	tod := local.Hour()*60 + local.Minute()
	if closeAt <= open {
		return tod >= open || tod < closeAt
	}
	return tod >= open && tod < closeAt
}

func minutesOfDay(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

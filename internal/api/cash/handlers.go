// internal/api/cash/handlers.go
package cash

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/7Francus7/CourtOps-sub003/internal/api/apiutil"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

var (
	queries     *store.Queries
	queriesOnce sync.Once
)

const cashQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

type transactionView struct {
	ID        int64  `json:"id"`
	BookingID *int64 `json:"bookingId,omitempty"`
	ClientID  *int64 `json:"clientId,omitempty"`
	Type      string `json:"type"`
	Category  string `json:"category"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	CreatedAt string `json:"createdAt"`
}

// GET /api/v1/clubs/{club_id}/cash/current
func HandleCurrent(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	club, ok := loadClub(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cashQueryTimeout)
	defer cancel()

	businessDate := time.Now().In(club.Location()).Format("2006-01-02")
	register, err := queries.GetOpenRegister(ctx, store.GetOpenRegisterParams{
		ClubID:       club.ID,
		BusinessDate: businessDate,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteJSON(w, http.StatusOK, map[string]any{
				"open":         false,
				"businessDate": businessDate,
			})
			return
		}
		logger.Error().Err(err).Int64("club_id", club.ID).Msg("Failed to load register")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load register")
		return
	}

	totals, err := queries.GetRegisterTotals(ctx, register.ID)
	if err != nil {
		logger.Error().Err(err).Int64("register_id", register.ID).Msg("Failed to total register")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to total register")
		return
	}

	transactions, err := queries.ListRegisterTransactions(ctx, register.ID)
	if err != nil {
		logger.Error().Err(err).Int64("register_id", register.ID).Msg("Failed to list transactions")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	views := make([]transactionView, 0, len(transactions))
	for _, t := range transactions {
		view := transactionView{
			ID:        t.ID,
			Type:      t.Type,
			Category:  t.Category,
			Amount:    t.Amount,
			Method:    t.Method,
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.BookingID.Valid {
			id := t.BookingID.Int64
			view.BookingID = &id
		}
		if t.ClientID.Valid {
			id := t.ClientID.Int64
			view.ClientID = &id
		}
		views = append(views, view)
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"open":         true,
		"businessDate": register.BusinessDate,
		"openedAt":     register.OpenedAt.UTC().Format(time.RFC3339),
		"income":       totals.Income,
		"expense":      totals.Expense,
		"balance":      totals.Income - totals.Expense,
		"transactions": views,
	})
}

// POST /api/v1/clubs/{club_id}/cash/close
func HandleClose(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	club, ok := loadClub(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cashQueryTimeout)
	defer cancel()

	businessDate := time.Now().In(club.Location()).Format("2006-01-02")
	register, err := queries.GetOpenRegister(ctx, store.GetOpenRegisterParams{
		ClubID:       club.ID,
		BusinessDate: businessDate,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusConflict, "No open register for today")
			return
		}
		logger.Error().Err(err).Int64("club_id", club.ID).Msg("Failed to load register")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load register")
		return
	}

	totals, err := queries.GetRegisterTotals(ctx, register.ID)
	if err != nil {
		logger.Error().Err(err).Int64("register_id", register.ID).Msg("Failed to total register")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to total register")
		return
	}

	if err := queries.CloseRegister(ctx, register.ID, time.Now()); err != nil {
		logger.Error().Err(err).Int64("register_id", register.ID).Msg("Failed to close register")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to close register")
		return
	}

	logger.Info().
		Int64("club_id", club.ID).
		Str("business_date", register.BusinessDate).
		Int64("income", totals.Income).
		Int64("expense", totals.Expense).
		Msg("Register closed")

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"businessDate": register.BusinessDate,
		"income":       totals.Income,
		"expense":      totals.Expense,
		"balance":      totals.Income - totals.Expense,
	})
}

func loadClub(w http.ResponseWriter, r *http.Request) (store.Club, bool) {
	clubID, ok := apiutil.PathID(r, "club_id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Club ID is required")
		return store.Club{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), cashQueryTimeout)
	defer cancel()

	club, err := queries.GetClubByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Club not found")
			return store.Club{}, false
		}
		log.Ctx(r.Context()).Error().Err(err).Int64("club_id", clubID).Msg("Failed to load club")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load club")
		return store.Club{}, false
	}
	return club, true
}

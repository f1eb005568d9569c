// internal/api/plans/handlers.go
package plans

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
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

const plansQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

type planView struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	DurationDays    int64  `json:"durationDays"`
	DiscountPercent int64  `json:"discountPercent"`
}

func viewOf(p store.MembershipPlan) planView {
	return planView{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		DurationDays:    p.DurationDays,
		DiscountPercent: p.DiscountPercent,
	}
}

// GET /api/v1/clubs/{club_id}/plans
func HandleList(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), plansQueryTimeout)
	defer cancel()

	listed, err := queries.ListMembershipPlans(ctx, clubID)
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to list plans")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list plans")
		return
	}

	views := make([]planView, 0, len(listed))
	for _, p := range listed {
		views = append(views, viewOf(p))
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"plans": views})
}

type planRequest struct {
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	DurationDays    int64  `json:"durationDays"`
	DiscountPercent int64  `json:"discountPercent"`
}

// POST /api/v1/clubs/{club_id}/plans
func HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	var body planRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Plan name is required")
		return
	}
	if body.Price <= 0 || body.DurationDays <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "price and durationDays must be positive")
		return
	}
	if body.DiscountPercent < 0 || body.DiscountPercent > 100 {
		apiutil.WriteError(w, http.StatusBadRequest, "discountPercent must be between 0 and 100")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), plansQueryTimeout)
	defer cancel()

	plan, err := queries.CreateMembershipPlan(ctx, store.CreateMembershipPlanParams{
		ClubID:          sql.NullInt64{Int64: clubID, Valid: true},
		Name:            body.Name,
		Price:           body.Price,
		DurationDays:    body.DurationDays,
		DiscountPercent: body.DiscountPercent,
	})
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to create plan")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create plan")
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "plan": viewOf(plan)})
}

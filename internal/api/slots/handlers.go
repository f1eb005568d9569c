// internal/api/slots/handlers.go
package slots

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/7Francus7/CourtOps-sub003/internal/api/apiutil"
	"github.com/7Francus7/CourtOps-sub003/internal/slots"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

var (
	queries     *store.Queries
	queriesOnce sync.Once
)

const slotsQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

// GET /api/v1/clubs/{club_id}/slots?date=YYYY-MM-DD
func HandleDaySchedule(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), slotsQueryTimeout)
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

	date, ok := apiutil.QueryDate(r, "date", club.Location())
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	schedule, err := slots.BuildDaySchedule(ctx, queries, slots.Params{
		ClubID: clubID,
		Date:   date,
	})
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Str("date", date).Msg("Failed to build day schedule")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load slots")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": schedule,
	})
}

// internal/api/courts/handlers.go
package courts

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
	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

var (
	queries     *store.Queries
	queriesOnce sync.Once
)

const courtsQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

type courtView struct {
	ID          int64  `json:"id"`
	ClubID      int64  `json:"clubId"`
	Name        string `json:"name"`
	Sport       string `json:"sport"`
	Type        string `json:"type"`
	Active      bool   `json:"active"`
	DurationMin *int64 `json:"durationMin,omitempty"`
	SortOrder   int64  `json:"sortOrder"`
}

func viewOf(c store.Court) courtView {
	view := courtView{
		ID:        c.ID,
		ClubID:    c.ClubID,
		Name:      c.Name,
		Sport:     c.Sport,
		Type:      c.CourtType,
		Active:    c.Active,
		SortOrder: c.SortOrder,
	}
	if c.DurationMin.Valid {
		d := c.DurationMin.Int64
		view.DurationMin = &d
	}
	return view
}

// GET /api/v1/clubs/{club_id}/courts
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

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	courts, err := queries.ListCourts(ctx, clubID)
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to list courts")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list courts")
		return
	}

	views := make([]courtView, 0, len(courts))
	for _, c := range courts {
		views = append(views, viewOf(c))
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": views})
}

type courtRequest struct {
	Name        string `json:"name"`
	Sport       string `json:"sport"`
	Type        string `json:"type"`
	Active      *bool  `json:"active"`
	DurationMin int64  `json:"durationMin"`
	SortOrder   int64  `json:"sortOrder"`
}

// POST /api/v1/clubs/{club_id}/courts
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

	var body courtRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Court name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	if _, err := queries.GetClubByID(ctx, clubID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Club not found")
			return
		}
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to load club")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load club")
		return
	}

	court, err := queries.CreateCourt(ctx, store.CreateCourtParams{
		ClubID:      clubID,
		Name:        body.Name,
		Sport:       body.Sport,
		CourtType:   body.Type,
		DurationMin: nullPositive(body.DurationMin),
		SortOrder:   body.SortOrder,
	})
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to create court")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create court")
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "court": viewOf(court)})
}

// PUT /api/v1/courts/{id}
func HandleUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	courtID, ok := apiutil.PathID(r, "id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Court ID is required")
		return
	}

	var body courtRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	existing, err := queries.GetCourtByID(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Court not found")
			return
		}
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to load court")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load court")
		return
	}

	// Absent fields keep their current values.
	name := existing.Name
	if strings.TrimSpace(body.Name) != "" {
		name = body.Name
	}
	sport := existing.Sport
	if body.Sport != "" {
		sport = body.Sport
	}
	courtType := existing.CourtType
	if body.Type != "" {
		courtType = body.Type
	}
	active := existing.Active
	if body.Active != nil {
		active = *body.Active
	}
	duration := existing.DurationMin
	if body.DurationMin > 0 {
		duration = sql.NullInt64{Int64: body.DurationMin, Valid: true}
	}
	sortOrder := existing.SortOrder
	if body.SortOrder != 0 {
		sortOrder = body.SortOrder
	}

	court, err := queries.UpdateCourt(ctx, store.UpdateCourtParams{
		ID:          courtID,
		Name:        name,
		Sport:       sport,
		CourtType:   courtType,
		Active:      active,
		DurationMin: duration,
		SortOrder:   sortOrder,
	})
	if err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to update court")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to update court")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "court": viewOf(court)})
}

// DELETE /api/v1/courts/{id} soft-disables the court so its booking history
// stays intact.
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	courtID, ok := apiutil.PathID(r, "id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Court ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	if _, err := queries.GetCourtByID(ctx, courtID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Court not found")
			return
		}
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to load court")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load court")
		return
	}

	if err := queries.DeactivateCourt(ctx, courtID); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to deactivate court")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to deactivate court")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func nullPositive(v int64) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

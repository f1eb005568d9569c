// internal/api/pricerules/handlers.go
package pricerules

import (
	"context"
	"database/sql"
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

const priceRulesQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

type ruleView struct {
	ID          int64  `json:"id"`
	DaysMask    int64  `json:"daysMask"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Price       int64  `json:"price"`
	MemberPrice *int64 `json:"memberPrice,omitempty"`
	Priority    int64  `json:"priority"`
	ValidFrom   string `json:"validFrom,omitempty"`
	ValidUntil  string `json:"validUntil,omitempty"`
}

func viewOf(rule store.PriceRule) ruleView {
	view := ruleView{
		ID:        rule.ID,
		DaysMask:  rule.DaysMask,
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
		Price:     rule.Price,
		Priority:  rule.Priority,
	}
	if rule.MemberPrice.Valid {
		p := rule.MemberPrice.Int64
		view.MemberPrice = &p
	}
	if rule.ValidFrom.Valid {
		view.ValidFrom = rule.ValidFrom.String
	}
	if rule.ValidUntil.Valid {
		view.ValidUntil = rule.ValidUntil.String
	}
	return view
}

// GET /api/v1/clubs/{club_id}/price-rules
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

	ctx, cancel := context.WithTimeout(r.Context(), priceRulesQueryTimeout)
	defer cancel()

	rules, err := queries.ListPriceRules(ctx, clubID)
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to list price rules")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list price rules")
		return
	}

	views := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, viewOf(rule))
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"rules": views})
}

type ruleRequest struct {
	DaysMask    int64  `json:"daysMask"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Price       int64  `json:"price"`
	MemberPrice int64  `json:"memberPrice"`
	Priority    int64  `json:"priority"`
	ValidFrom   string `json:"validFrom"`
	ValidUntil  string `json:"validUntil"`
}

// POST /api/v1/clubs/{club_id}/price-rules
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

	var body ruleRequest
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.DaysMask <= 0 || body.DaysMask > 127 {
		apiutil.WriteError(w, http.StatusBadRequest, "daysMask must be a 7-bit day mask")
		return
	}
	if !validTimeOfDay(body.StartTime) || !validTimeOfDay(body.EndTime) {
		apiutil.WriteError(w, http.StatusBadRequest, "startTime and endTime must be HH:mm")
		return
	}
	if body.Price <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "price must be positive")
		return
	}
	if (body.ValidFrom != "" && !validDate(body.ValidFrom)) || (body.ValidUntil != "" && !validDate(body.ValidUntil)) {
		apiutil.WriteError(w, http.StatusBadRequest, "validFrom and validUntil must be YYYY-MM-DD")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), priceRulesQueryTimeout)
	defer cancel()

	rule, err := queries.CreatePriceRule(ctx, store.CreatePriceRuleParams{
		ClubID:      clubID,
		DaysMask:    body.DaysMask,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		Price:       body.Price,
		MemberPrice: nullPositive(body.MemberPrice),
		Priority:    body.Priority,
		ValidFrom:   nullString(body.ValidFrom),
		ValidUntil:  nullString(body.ValidUntil),
	})
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to create price rule")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to create price rule")
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "rule": viewOf(rule)})
}

// DELETE /api/v1/price-rules/{id}
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ruleID, ok := apiutil.PathID(r, "id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Price rule ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), priceRulesQueryTimeout)
	defer cancel()

	if err := queries.DeletePriceRule(ctx, ruleID); err != nil {
		logger.Error().Err(err).Int64("rule_id", ruleID).Msg("Failed to delete price rule")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to delete price rule")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func validTimeOfDay(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

func validDate(v string) bool {
	_, err := time.Parse("2006-01-02", v)
	return err == nil
}

func nullPositive(v int64) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

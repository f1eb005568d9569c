// internal/api/clients/handlers.go
package clients

import (
	"context"
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

const clientsQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *store.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

type clientView struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	Email               string `json:"email,omitempty"`
	IsMember            bool   `json:"isMember"`
	MembershipExpiresAt string `json:"membershipExpiresAt,omitempty"`
}

func viewOf(c store.Client) clientView {
	view := clientView{
		ID:       c.ID,
		Name:     c.Name,
		Phone:    c.Phone,
		IsMember: c.IsMember,
	}
	if c.Email.Valid {
		view.Email = c.Email.String
	}
	if c.MembershipExpiresAt.Valid {
		view.MembershipExpiresAt = c.MembershipExpiresAt.Time.UTC().Format(time.RFC3339)
	}
	return view
}

// GET /api/v1/clubs/{club_id}/clients?search=
//
// Search terms that look like phone numbers are normalized before matching,
// so "15-5555-1234" finds the client stored as +54115555....
func HandleSearch(w http.ResponseWriter, r *http.Request) {
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

	search := strings.TrimSpace(r.URL.Query().Get("search"))

	ctx, cancel := context.WithTimeout(r.Context(), clientsQueryTimeout)
	defer cancel()

	found, err := queries.SearchClients(ctx, store.SearchClientsParams{
		ClubID: clubID,
		Query:  search,
	})
	if err != nil {
		logger.Error().Err(err).Int64("club_id", clubID).Msg("Failed to search clients")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to search clients")
		return
	}

	// A phone-shaped query may miss on the raw digits but hit once
	// normalized to E.164.
	if len(found) == 0 && search != "" {
		if normalized := store.NormalizePhone(search); normalized != search {
			client, err := queries.GetClientByPhone(ctx, store.GetClientByPhoneParams{
				ClubID: clubID,
				Phone:  normalized,
			})
			if err == nil {
				found = append(found, client)
			}
		}
	}

	views := make([]clientView, 0, len(found))
	for _, c := range found {
		views = append(views, viewOf(c))
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"clients": views})
}

// GET /api/v1/clubs/{club_id}/clients/{id}/memberships
func HandleListMemberships(w http.ResponseWriter, r *http.Request) {
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
	clientID, ok := apiutil.PathID(r, "id")
	if !ok {
		apiutil.WriteError(w, http.StatusBadRequest, "Client ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clientsQueryTimeout)
	defer cancel()

	client, err := queries.GetClientByID(ctx, clientID)
	if err != nil || client.ClubID != clubID {
		apiutil.WriteError(w, http.StatusNotFound, "Client not found")
		return
	}

	memberships, err := queries.ListClientMemberships(ctx, clientID)
	if err != nil {
		logger.Error().Err(err).Int64("client_id", clientID).Msg("Failed to list memberships")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list memberships")
		return
	}

	type membershipView struct {
		ID       int64  `json:"id"`
		PlanID   int64  `json:"planId"`
		Status   string `json:"status"`
		StartsAt string `json:"startsAt"`
		EndsAt   string `json:"endsAt"`
	}
	views := make([]membershipView, 0, len(memberships))
	for _, m := range memberships {
		views = append(views, membershipView{
			ID:       m.ID,
			PlanID:   m.PlanID,
			Status:   m.Status,
			StartsAt: m.StartsAt.UTC().Format(time.RFC3339),
			EndsAt:   m.EndsAt.UTC().Format(time.RFC3339),
		})
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"client":      viewOf(client),
		"memberships": views,
	})
}

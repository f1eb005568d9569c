// internal/api/webhooks/handlers.go
package webhooks

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/7Francus7/CourtOps-sub003/internal/api/apiutil"
	"github.com/7Francus7/CourtOps-sub003/internal/payments"
)

var (
	reconciler *payments.Reconciler
	initOnce   sync.Once
)

// Reconciliation fetches from the gateway, so the deadline is wider than
// the usual query timeout.
const webhookTimeout = 30 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(r *payments.Reconciler) {
	if r == nil {
		return
	}
	initOnce.Do(func() {
		reconciler = r
	})
}

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// POST /api/v1/payments/webhook?club_id=N
//
// The gateway retries anything that is not a 2xx, so business-level
// mismatches are acknowledged with status "ignored". Only internal and
// configuration faults return 500.
func HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if reconciler == nil {
		logger.Error().Msg("Payment reconciler not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var body webhookBody
	if err := apiutil.DecodeJSON(r, &body); err != nil {
		// Malformed payloads are not worth a retry either.
		logger.Warn().Err(err).Msg("Unparseable webhook body")
		apiutil.WriteJSON(w, http.StatusOK, payments.Outcome{Status: "ignored", Detail: "unparseable body"})
		return
	}

	clubID, _ := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("club_id")), 10, 64)

	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()

	outcome, err := reconciler.Process(ctx, payments.WebhookEvent{
		Type:   body.Type,
		DataID: body.Data.ID,
		ClubID: clubID,
	})
	if err != nil {
		logger.Error().Err(err).
			Str("type", body.Type).
			Str("data_id", body.Data.ID).
			Int64("club_id", clubID).
			Msg("Webhook reconciliation failed")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to process event")
		return
	}

	logger.Info().
		Str("type", body.Type).
		Str("data_id", body.Data.ID).
		Str("outcome", outcome.Status).
		Str("detail", outcome.Detail).
		Msg("Webhook processed")
	apiutil.WriteJSON(w, http.StatusOK, outcome)
}

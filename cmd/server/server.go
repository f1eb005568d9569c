// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/7Francus7/CourtOps-sub003/internal/api"
	"github.com/7Francus7/CourtOps-sub003/internal/api/bookings"
	"github.com/7Francus7/CourtOps-sub003/internal/api/cash"
	"github.com/7Francus7/CourtOps-sub003/internal/api/clients"
	"github.com/7Francus7/CourtOps-sub003/internal/api/courts"
	"github.com/7Francus7/CourtOps-sub003/internal/api/plans"
	"github.com/7Francus7/CourtOps-sub003/internal/api/pricerules"
	"github.com/7Francus7/CourtOps-sub003/internal/api/slots"
	"github.com/7Francus7/CourtOps-sub003/internal/api/webhooks"
	"github.com/7Francus7/CourtOps-sub003/internal/booking"
	"github.com/7Francus7/CourtOps-sub003/internal/config"
	"github.com/7Francus7/CourtOps-sub003/internal/db"
	"github.com/7Francus7/CourtOps-sub003/internal/events"
	"github.com/7Francus7/CourtOps-sub003/internal/payments"
	"github.com/7Francus7/CourtOps-sub003/internal/ratelimit"
)

func newServer(cfg *config.Config, database *db.DB, publisher *events.Publisher) *http.Server {
	router := http.NewServeMux()

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	bookingService := booking.NewService(database, publisher)
	gateway := payments.NewHTTPGateway(cfg.Gateway.BaseURL)
	reconciler := payments.NewReconciler(database, gateway, publisher, cfg.Gateway.PlatformAccessToken)

	slots.InitHandlers(database.Queries)
	bookings.InitHandlers(database.Queries, bookingService, ratelimit.NewLimiter(nil))
	webhooks.InitHandlers(reconciler)
	courts.InitHandlers(database.Queries)
	pricerules.InitHandlers(database.Queries)
	clients.InitHandlers(database.Queries)
	plans.InitHandlers(database.Queries)
	cash.InitHandlers(database.Queries)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/slots", slots.HandleDaySchedule)

	// Bookings
	mux.HandleFunc("POST /api/v1/clubs/{club_id}/bookings", bookings.HandleCreate)
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/bookings", bookings.HandleListDay)
	mux.HandleFunc("POST /api/v1/public/bookings", bookings.HandlePublicCreate)
	mux.HandleFunc("POST /api/v1/bookings/{id}/payments", bookings.HandleAddPayments)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleCancel)

	// Payment gateway webhook
	mux.HandleFunc("POST /api/v1/payments/webhook", webhooks.HandleGatewayWebhook)

	// Courts
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/courts", courts.HandleList)
	mux.HandleFunc("POST /api/v1/clubs/{club_id}/courts", courts.HandleCreate)
	mux.HandleFunc("PUT /api/v1/courts/{id}", courts.HandleUpdate)
	mux.HandleFunc("DELETE /api/v1/courts/{id}", courts.HandleDelete)

	// Price rules
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/price-rules", pricerules.HandleList)
	mux.HandleFunc("POST /api/v1/clubs/{club_id}/price-rules", pricerules.HandleCreate)
	mux.HandleFunc("DELETE /api/v1/price-rules/{id}", pricerules.HandleDelete)

	// Clients & memberships
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/clients", clients.HandleSearch)
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/clients/{id}/memberships", clients.HandleListMemberships)
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/plans", plans.HandleList)
	mux.HandleFunc("POST /api/v1/clubs/{club_id}/plans", plans.HandleCreate)

	// Cash registers
	mux.HandleFunc("GET /api/v1/clubs/{club_id}/cash/current", cash.HandleCurrent)
	mux.HandleFunc("POST /api/v1/clubs/{club_id}/cash/close", cash.HandleClose)
}

// Package payments reconciles asynchronous payment-gateway events into
// booking, membership, and subscription state. Delivery is at least once, so
// every mutating path carries an idempotency guard.
package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	appdb "github.com/7Francus7/CourtOps-sub003/internal/db"
	"github.com/7Francus7/CourtOps-sub003/internal/events"
	"github.com/7Francus7/CourtOps-sub003/internal/ledger"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

const (
	EventTypePayment     = "payment"
	EventTypePreapproval = "subscription_preapproval"
)

// ErrMissingCredentials is a configuration fault: the tenant has no gateway
// credentials and no platform fallback applies.
var ErrMissingCredentials = errors.New("no gateway credentials configured")

type Reconciler struct {
	db            *appdb.DB
	gateway       Gateway
	events        *events.Publisher
	platformToken string
	now           func() time.Time
}

func NewReconciler(database *appdb.DB, gateway Gateway, publisher *events.Publisher, platformToken string) *Reconciler {
	return &Reconciler{
		db:            database,
		gateway:       gateway,
		events:        publisher,
		platformToken: platformToken,
		now:           time.Now,
	}
}

// SetNowFunc overrides the reconciler clock. Test hook.
func (r *Reconciler) SetNowFunc(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// WebhookEvent is the already-decoded webhook body plus the optional tenant
// hint from the query string.
type WebhookEvent struct {
	Type   string
	DataID string
	ClubID int64 // 0 means platform-level credentials
}

// Outcome is what the webhook endpoint reports back to the gateway. Anything
// outside this system's concern is acknowledged as ignored, never failed,
// to avoid retry storms.
type Outcome struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func ignored(detail string) Outcome { return Outcome{Status: "ignored", Detail: detail} }
func applied(detail string) Outcome { return Outcome{Status: "ok", Detail: detail} }

// Process applies one gateway event. A non-nil error means an internal or
// configuration fault; every business-level mismatch resolves to an ignored
// Outcome instead.
func (r *Reconciler) Process(ctx context.Context, evt WebhookEvent) (Outcome, error) {
	if evt.DataID == "" {
		return ignored("missing data id"), nil
	}

	token, err := r.resolveToken(ctx, evt.ClubID)
	if err != nil {
		return Outcome{}, err
	}

	switch evt.Type {
	case EventTypePreapproval:
		return r.processPreapproval(ctx, token, evt.DataID)
	case EventTypePayment:
		return r.processPayment(ctx, token, evt.DataID)
	default:
		return ignored("unhandled event type"), nil
	}
}

// resolveToken picks the club's gateway credentials, falling back to the
// platform token, which also serves platform-level (no club) events.
func (r *Reconciler) resolveToken(ctx context.Context, clubID int64) (string, error) {
	if clubID > 0 {
		club, err := r.db.Queries.GetClubByID(ctx, clubID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("load club %d: %w", clubID, err)
		}
		if err == nil && club.GatewayAccessToken.Valid && club.GatewayAccessToken.String != "" {
			return club.GatewayAccessToken.String, nil
		}
	}
	if r.platformToken == "" {
		return "", ErrMissingCredentials
	}
	return r.platformToken, nil
}

// processPreapproval refreshes a club's subscription from the authoritative
// preapproval record. Overwriting with the latest status is idempotent by
// nature.
func (r *Reconciler) processPreapproval(ctx context.Context, token, id string) (Outcome, error) {
	logger := log.Ctx(ctx).With().Str("preapproval_id", id).Logger()

	pre, err := r.gateway.GetPreapproval(ctx, token, id)
	if err != nil {
		logger.Warn().Err(err).Msg("Preapproval lookup failed")
		return ignored("preapproval lookup failed"), nil
	}

	ref, err := ParseReference(pre.ExternalReference)
	if err != nil || ref.Kind != ReferenceSubscription {
		logger.Warn().Str("external_reference", pre.ExternalReference).Msg("Preapproval reference not correlatable")
		return ignored("uncorrelatable reference"), nil
	}

	nextBilling := sql.NullTime{}
	if !pre.NextPaymentDate.IsZero() {
		nextBilling = sql.NullTime{Time: pre.NextPaymentDate.UTC(), Valid: true}
	}
	err = r.db.Queries.UpdateClubSubscription(ctx, store.UpdateClubSubscriptionParams{
		ID:                 ref.ClubID,
		SubscriptionStatus: pre.Status,
		SubscriptionPlanID: sql.NullInt64{Int64: ref.PlanID, Valid: true},
		NextBillingAt:      nextBilling,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("update club %d subscription: %w", ref.ClubID, err)
	}

	r.events.Publish(ctx, events.KeyClubUpdated, events.ClubUpdated{ClubID: ref.ClubID, SubscriptionStatus: pre.Status})
	logger.Info().Int64("club_id", ref.ClubID).Str("status", pre.Status).Msg("Club subscription refreshed")
	return applied("subscription updated"), nil
}

func (r *Reconciler) processPayment(ctx context.Context, token, id string) (Outcome, error) {
	logger := log.Ctx(ctx).With().Str("payment_id", id).Logger()

	payment, err := r.gateway.GetPayment(ctx, token, id)
	if err != nil {
		logger.Warn().Err(err).Msg("Payment lookup failed")
		return ignored("payment lookup failed"), nil
	}
	if payment.Status != PaymentStatusApproved {
		logger.Debug().Str("status", payment.Status).Msg("Payment not approved; nothing to apply")
		return ignored("payment not approved"), nil
	}

	ref, err := ParseReference(payment.ExternalReference)
	if err != nil {
		logger.Warn().Str("external_reference", payment.ExternalReference).Msg("Payment reference not correlatable")
		return ignored("uncorrelatable reference"), nil
	}

	switch ref.Kind {
	case ReferenceSubscription:
		return r.applySubscriptionPayment(ctx, payment, ref)
	case ReferenceMembership:
		return r.applyMembershipPayment(ctx, payment, ref)
	default:
		return r.applyBookingPayment(ctx, payment, ref)
	}
}

// applySubscriptionPayment marks the club's platform subscription authorized
// for the referenced plan. Replays land on the same final state.
func (r *Reconciler) applySubscriptionPayment(ctx context.Context, payment *Payment, ref Reference) (Outcome, error) {
	err := r.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		if err := q.UpdateClubSubscription(ctx, store.UpdateClubSubscriptionParams{
			ID:                 ref.ClubID,
			SubscriptionStatus: store.SubscriptionStatusAuthorized,
			SubscriptionPlanID: sql.NullInt64{Int64: ref.PlanID, Valid: true},
		}); err != nil {
			return fmt.Errorf("authorize club %d subscription: %w", ref.ClubID, err)
		}
		return q.RecordGatewayEvent(ctx, store.RecordGatewayEventParams{
			PaymentID: payment.ID,
			Kind:      "subscription",
			AppliedAt: r.now(),
		})
	})
	if err != nil {
		return Outcome{}, err
	}

	r.events.Publish(ctx, events.KeyClubUpdated, events.ClubUpdated{
		ClubID:             ref.ClubID,
		SubscriptionStatus: store.SubscriptionStatusAuthorized,
	})
	return applied("subscription authorized"), nil
}

// applyMembershipPayment activates a membership purchase: the prior ACTIVE
// membership expires, a new one starts now, and the fee lands on the club's
// open register. Replays are cut off by the gateway_events guard, since this
// path is not naturally idempotent.
func (r *Reconciler) applyMembershipPayment(ctx context.Context, payment *Payment, ref Reference) (Outcome, error) {
	logger := log.Ctx(ctx).With().Str("payment_id", payment.ID).Int64("client_id", ref.ClientID).Logger()

	var activated *events.MembershipActivated
	err := r.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries

		seen, err := q.GatewayEventExists(ctx, payment.ID)
		if err != nil {
			return fmt.Errorf("check gateway event %s: %w", payment.ID, err)
		}
		if seen {
			logger.Info().Msg("Membership payment already applied; skipping")
			return nil
		}

		club, err := q.GetClubByID(ctx, ref.ClubID)
		if err != nil {
			return fmt.Errorf("load club %d: %w", ref.ClubID, err)
		}
		plan, err := q.GetMembershipPlanByID(ctx, ref.PlanID)
		if err != nil {
			return fmt.Errorf("load plan %d: %w", ref.PlanID, err)
		}
		client, err := q.GetClientByID(ctx, ref.ClientID)
		if err != nil {
			return fmt.Errorf("load client %d: %w", ref.ClientID, err)
		}

		if err := q.CancelActiveMemberships(ctx, client.ID); err != nil {
			return fmt.Errorf("expire prior memberships for client %d: %w", client.ID, err)
		}

		now := r.now()
		endsAt := now.AddDate(0, 0, int(plan.DurationDays))
		membership, err := q.CreateMembership(ctx, store.CreateMembershipParams{
			ClubID:   club.ID,
			ClientID: client.ID,
			PlanID:   plan.ID,
			StartsAt: now,
			EndsAt:   endsAt,
		})
		if err != nil {
			return fmt.Errorf("create membership: %w", err)
		}

		if err := q.SetClientMembership(ctx, store.SetClientMembershipParams{
			ID:                  client.ID,
			IsMember:            true,
			MembershipExpiresAt: sql.NullTime{Time: endsAt.UTC(), Valid: true},
		}); err != nil {
			return fmt.Errorf("flag client %d as member: %w", client.ID, err)
		}

		register, err := ledger.OpenRegister(ctx, q, club, now)
		if err != nil {
			return err
		}
		if _, err := q.CreateTransaction(ctx, store.CreateTransactionParams{
			ClubID:     club.ID,
			RegisterID: register.ID,
			ClientID:   sql.NullInt64{Int64: client.ID, Valid: true},
			Type:       store.TransactionTypeIncome,
			Category:   store.TransactionCategoryMembershipFee,
			Amount:     payment.TransactionAmount,
			Method:     "GATEWAY",
		}); err != nil {
			return fmt.Errorf("record membership fee: %w", err)
		}

		if err := q.RecordGatewayEvent(ctx, store.RecordGatewayEventParams{
			PaymentID: payment.ID,
			Kind:      "membership",
			AppliedAt: now,
		}); err != nil {
			return fmt.Errorf("record gateway event %s: %w", payment.ID, err)
		}

		activated = &events.MembershipActivated{
			ClubID:   club.ID,
			ClientID: client.ID,
			PlanID:   plan.ID,
			EndsAt:   membership.EndsAt.UTC().Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if activated == nil {
		return applied("already processed"), nil
	}

	r.events.Publish(ctx, events.KeyMembershipActivated, *activated)
	return applied("membership activated"), nil
}

// applyBookingPayment confirms a booking from an approved gateway payment.
// A booking already PAID is skipped entirely; that skip is the idempotency
// guard for this path.
func (r *Reconciler) applyBookingPayment(ctx context.Context, payment *Payment, ref Reference) (Outcome, error) {
	logger := log.Ctx(ctx).With().Str("payment_id", payment.ID).Int64("booking_id", ref.BookingID).Logger()

	booking, err := r.db.Queries.GetBookingByID(ctx, ref.BookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The booking may belong to a flow this system never saw.
			logger.Warn().Msg("Booking not found for payment; acknowledging")
			return ignored("booking not found"), nil
		}
		return Outcome{}, fmt.Errorf("load booking %d: %w", ref.BookingID, err)
	}
	if booking.PaymentStatus == store.PaymentStatusPaid {
		logger.Info().Msg("Booking already paid; skipping")
		return applied("already paid"), nil
	}

	club, err := r.db.Queries.GetClubByID(ctx, booking.ClubID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load club %d: %w", booking.ClubID, err)
	}

	paymentStatus := store.PaymentStatusPartial
	if payment.TransactionAmount >= booking.Price {
		paymentStatus = store.PaymentStatusPaid
	}

	err = r.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries

		updated, err := q.UpdateBookingPayment(ctx, store.UpdateBookingPaymentParams{
			ID:            booking.ID,
			Status:        store.BookingStatusConfirmed,
			PaymentStatus: paymentStatus,
			PaymentMethod: sql.NullString{String: "GATEWAY", Valid: true},
		})
		if err != nil {
			return fmt.Errorf("confirm booking %d: %w", booking.ID, err)
		}
		booking = updated

		register, err := ledger.OpenRegister(ctx, q, club, r.now())
		if err != nil {
			return err
		}
		if _, err := q.CreateTransaction(ctx, store.CreateTransactionParams{
			ClubID:     club.ID,
			RegisterID: register.ID,
			BookingID:  sql.NullInt64{Int64: booking.ID, Valid: true},
			ClientID:   booking.ClientID,
			Type:       store.TransactionTypeIncome,
			Category:   store.TransactionCategoryBookingDeposit,
			Amount:     payment.TransactionAmount,
			Method:     "GATEWAY",
		}); err != nil {
			return fmt.Errorf("record booking deposit: %w", err)
		}

		return q.RecordGatewayEvent(ctx, store.RecordGatewayEventParams{
			PaymentID: payment.ID,
			Kind:      "booking",
			AppliedAt: r.now(),
		})
	})
	if err != nil {
		return Outcome{}, err
	}

	r.events.Publish(ctx, events.KeyPaymentReceived, events.PaymentReceived{
		ClubID:        club.ID,
		BookingID:     booking.ID,
		Amount:        payment.TransactionAmount,
		PaymentStatus: paymentStatus,
		Source:        "gateway",
	})
	logger.Info().Str("payment_status", paymentStatus).Msg("Booking confirmed from gateway payment")
	return applied("booking updated"), nil
}

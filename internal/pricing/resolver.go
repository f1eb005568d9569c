// Package pricing resolves the effective price of a court-time combination
// from a club's ordered rule set.
package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

const (
	timeOfDayLayout = "15:04"
	dateLayout      = "2006-01-02"
)

// ResolveInput describes one priced instant. The instant must already be in
// the club's local time.
type ResolveInput struct {
	At              time.Time
	IsMember        bool
	DiscountPercent int64
}

// Resolve picks the effective price for the instant. Rules are consulted in
// effective order (priority descending, dated rules over open-ended ones,
// then id); the first match wins. With no matching rule the club default
// price applies, and a missing club resolves to zero so read-side slot
// generation never fails on configuration gaps.
func Resolve(ctx context.Context, q *store.Queries, clubID int64, in ResolveInput) int64 {
	club, err := q.GetClubByID(ctx, clubID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Ctx(ctx).Error().Err(err).Int64("club_id", clubID).Msg("Failed to load club for pricing")
		}
		return 0
	}

	rules, err := q.ListPriceRules(ctx, clubID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("club_id", clubID).Msg("Failed to load price rules")
		return applyDiscount(club.DefaultPrice, in.DiscountPercent)
	}

	price := club.DefaultPrice
	for _, rule := range rules {
		if !ruleMatches(rule, in.At) {
			continue
		}
		price = rule.Price
		if in.IsMember && rule.MemberPrice.Valid {
			price = rule.MemberPrice.Int64
		}
		break
	}

	return applyDiscount(price, in.DiscountPercent)
}

// ruleMatches reports whether the rule covers the local instant: weekday in
// the day mask, time-of-day inside the [start,end) window (windows with
// end <= start cross midnight and are anchored to the day they open), and
// date inside the optional validity range.
func ruleMatches(rule store.PriceRule, at time.Time) bool {
	start, err := minutesOfDay(rule.StartTime)
	if err != nil {
		return false
	}
	end, err := minutesOfDay(rule.EndTime)
	if err != nil {
		return false
	}

	tod := at.Hour()*60 + at.Minute()
	day := at

	if end <= start {
		// Crosses midnight. Early-morning instants belong to the window
		// opened the previous day.
		switch {
		case tod >= start:
		case tod < end:
			day = at.AddDate(0, 0, -1)
		default:
			return false
		}
	} else if tod < start || tod >= end {
		return false
	}

	if rule.DaysMask&(1<<uint(day.Weekday())) == 0 {
		return false
	}

	date := day.Format(dateLayout)
	if rule.ValidFrom.Valid && date < rule.ValidFrom.String {
		return false
	}
	if rule.ValidUntil.Valid && date > rule.ValidUntil.String {
		return false
	}
	return true
}

// applyDiscount applies a membership-plan percentage discount, rounding
// half-up to whole pesos.
func applyDiscount(price int64, discountPercent int64) int64 {
	if price <= 0 {
		return 0
	}
	if discountPercent <= 0 {
		return price
	}
	if discountPercent >= 100 {
		return 0
	}
	discounted := price * (100 - discountPercent)
	return (discounted + 50) / 100
}

// ActiveDiscount returns the discount percent of the client's active
// membership plan, or zero when the client holds no usable membership.
func ActiveDiscount(ctx context.Context, q *store.Queries, clientID int64, now time.Time) int64 {
	membership, err := q.GetActiveMembership(ctx, clientID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Ctx(ctx).Error().Err(err).Int64("client_id", clientID).Msg("Failed to load active membership")
		}
		return 0
	}
	if membership.EndsAt.Before(now) {
		return 0
	}
	plan, err := q.GetMembershipPlanByID(ctx, membership.PlanID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("plan_id", membership.PlanID).Msg("Failed to load membership plan")
		return 0
	}
	return plan.DiscountPercent
}

func minutesOfDay(value string) (int, error) {
	parsed, err := time.Parse(timeOfDayLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

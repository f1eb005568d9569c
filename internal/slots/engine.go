// Package slots enumerates the free, bookable time slots a club can offer on
// a given day. This is read-side computation only; booking creation re-checks
// availability under its own transaction.
package slots

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/7Francus7/CourtOps-sub003/internal/pricing"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

const (
	timeOfDayLayout = "15:04"
	dateLayout      = "2006-01-02"
)

// CourtSlot is one court's offer inside a labeled slot.
type CourtSlot struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Sport    string `json:"sport"`
	Duration int64  `json:"duration"`
	Price    int64  `json:"price"`
}

// Slot aggregates every court offering a start label. Courts with different
// durations can share a label; MinPrice is the cheapest offer among them.
type Slot struct {
	Time     string      `json:"time"`
	MinPrice int64       `json:"price"`
	Courts   []CourtSlot `json:"courts"`
}

type Params struct {
	ClubID int64
	Date   string    // civil date, YYYY-MM-DD, in the club's local zone
	Now    time.Time // reference for filtering already-started slots
}

// BuildDaySchedule computes the club's available slots for the target date.
func BuildDaySchedule(ctx context.Context, q *store.Queries, p Params) ([]Slot, error) {
	club, err := q.GetClubByID(ctx, p.ClubID)
	if err != nil {
		return nil, fmt.Errorf("load club %d: %w", p.ClubID, err)
	}

	loc := club.Location()
	day, err := time.ParseInLocation(dateLayout, p.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", p.Date, err)
	}
	dayStart, err := atTimeOfDay(day, club.OpenTime, loc)
	if err != nil {
		return nil, fmt.Errorf("club %d open time: %w", p.ClubID, err)
	}
	dayEnd, err := atTimeOfDay(day, club.CloseTime, loc)
	if err != nil {
		return nil, fmt.Errorf("club %d close time: %w", p.ClubID, err)
	}
	if !dayEnd.After(dayStart) {
		// Close before open means the club closes past midnight.
		dayEnd = dayEnd.AddDate(0, 0, 1)
	}

	courts, err := q.ListActiveCourts(ctx, p.ClubID)
	if err != nil {
		return nil, fmt.Errorf("list courts for club %d: %w", p.ClubID, err)
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	sameDay := sameLocalDay(now.In(loc), day)

	byLabel := make(map[string]*Slot)
	labelOrder := make(map[string]int)

	for _, court := range courts {
		duration := club.SlotDurationMin
		if court.DurationMin.Valid && court.DurationMin.Int64 > 0 {
			duration = court.DurationMin.Int64
		}
		if duration <= 0 {
			log.Ctx(ctx).Warn().Int64("court_id", court.ID).Msg("Court has no usable slot duration")
			continue
		}
		step := time.Duration(duration) * time.Minute

		booked, err := q.ListCourtBookingsBetween(ctx, store.ListCourtBookingsBetweenParams{
			CourtID:   court.ID,
			StartTime: dayStart,
			EndTime:   dayEnd,
		})
		if err != nil {
			return nil, fmt.Errorf("list bookings for court %d: %w", court.ID, err)
		}

		for start := dayStart; ; start = start.Add(step) {
			end := start.Add(step)
			if end.After(dayEnd) {
				// Slots must fit entirely within operating hours.
				break
			}
			if sameDay && !start.After(now) {
				continue
			}
			if overlapsAny(booked, start, end) {
				continue
			}

			price := pricing.Resolve(ctx, q, p.ClubID, pricing.ResolveInput{At: start.In(loc)})
			label := start.In(loc).Format(timeOfDayLayout)

			slot, ok := byLabel[label]
			if !ok {
				slot = &Slot{Time: label, MinPrice: price}
				byLabel[label] = slot
				labelOrder[label] = int(start.Sub(dayStart) / time.Minute)
			}
			if price < slot.MinPrice {
				slot.MinPrice = price
			}
			slot.Courts = append(slot.Courts, CourtSlot{
				ID:       court.ID,
				Name:     court.Name,
				Type:     court.CourtType,
				Sport:    court.Sport,
				Duration: duration,
				Price:    price,
			})
		}
	}

	result := make([]Slot, 0, len(byLabel))
	for _, slot := range byLabel {
		sort.Slice(slot.Courts, func(i, j int) bool { return slot.Courts[i].Name < slot.Courts[j].Name })
		result = append(result, *slot)
	}
	sort.Slice(result, func(i, j int) bool { return labelOrder[result[i].Time] < labelOrder[result[j].Time] })
	return result, nil
}

// overlapsAny applies the half-open interval test against existing bookings.
func overlapsAny(bookings []store.Booking, start, end time.Time) bool {
	for _, b := range bookings {
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			return true
		}
	}
	return false
}

func atTimeOfDay(date time.Time, tod string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse(timeOfDayLayout, tod)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", tod, err)
	}
	local := date.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

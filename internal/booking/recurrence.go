package booking

import "time"

// A recurring request can never expand past this many additional weekly
// occurrences, whatever end date the caller supplies.
const maxAdditionalOccurrences = 52

// ExpandWeekly produces the start instant plus occurrences exactly seven days
// apart while the next occurrence's civil date (in start's location) is not
// after endDate. A nil endDate yields the single start occurrence.
func ExpandWeekly(start time.Time, endDate *time.Time) []time.Time {
	occurrences := []time.Time{start}
	if endDate == nil {
		return occurrences
	}

	limitYear, limitMonth, limitDay := endDate.In(start.Location()).Date()
	limit := time.Date(limitYear, limitMonth, limitDay, 0, 0, 0, 0, start.Location())

	next := start.AddDate(0, 0, 7)
	for len(occurrences) <= maxAdditionalOccurrences {
		y, m, d := next.Date()
		if time.Date(y, m, d, 0, 0, 0, 0, start.Location()).After(limit) {
			break
		}
		occurrences = append(occurrences, next)
		next = next.AddDate(0, 0, 7)
	}
	return occurrences
}

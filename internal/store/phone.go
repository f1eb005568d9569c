package store

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Clients are identified by (club, phone), so every phone must be stored in
// one canonical form.
const defaultPhoneRegion = "AR"

// NormalizePhone returns the E.164 form of raw when it parses as a valid
// number, otherwise the trimmed input. Lookups and writes must both go
// through this so the (club, phone) identity holds.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

package payments

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// External references round-trip through the payment gateway as opaque
// strings. Three encodings exist and must be preserved bit-exact:
//
//	"<bookingId>"                       booking payment
//	"<clubId>___<clientId>___<planId>"  client membership purchase
//	"<clubId>:<planId>"                 platform subscription payment
const (
	membershipSeparator   = "___"
	subscriptionSeparator = ":"
)

var ErrBadReference = errors.New("unrecognized external reference")

type ReferenceKind int

const (
	ReferenceBooking ReferenceKind = iota
	ReferenceMembership
	ReferenceSubscription
)

// Reference is the decoded form of an external reference string. It is
// parsed exactly once at the webhook boundary; downstream code only ever
// sees the tagged variant.
type Reference struct {
	Kind      ReferenceKind
	BookingID int64
	ClubID    int64
	ClientID  int64
	PlanID    int64
}

func ParseReference(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}, fmt.Errorf("%w: empty", ErrBadReference)
	}

	if strings.Contains(raw, membershipSeparator) {
		parts := strings.Split(raw, membershipSeparator)
		if len(parts) != 3 {
			return Reference{}, fmt.Errorf("%w: %q", ErrBadReference, raw)
		}
		clubID, err1 := strconv.ParseInt(parts[0], 10, 64)
		clientID, err2 := strconv.ParseInt(parts[1], 10, 64)
		planID, err3 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return Reference{}, fmt.Errorf("%w: %q", ErrBadReference, raw)
		}
		return Reference{Kind: ReferenceMembership, ClubID: clubID, ClientID: clientID, PlanID: planID}, nil
	}

	if strings.Contains(raw, subscriptionSeparator) {
		parts := strings.Split(raw, subscriptionSeparator)
		if len(parts) != 2 {
			return Reference{}, fmt.Errorf("%w: %q", ErrBadReference, raw)
		}
		clubID, err1 := strconv.ParseInt(parts[0], 10, 64)
		planID, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			return Reference{}, fmt.Errorf("%w: %q", ErrBadReference, raw)
		}
		return Reference{Kind: ReferenceSubscription, ClubID: clubID, PlanID: planID}, nil
	}

	bookingID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || bookingID <= 0 {
		return Reference{}, fmt.Errorf("%w: %q", ErrBadReference, raw)
	}
	return Reference{Kind: ReferenceBooking, BookingID: bookingID}, nil
}

// String renders the wire encoding for the reference.
func (r Reference) String() string {
	switch r.Kind {
	case ReferenceMembership:
		return fmt.Sprintf("%d%s%d%s%d", r.ClubID, membershipSeparator, r.ClientID, membershipSeparator, r.PlanID)
	case ReferenceSubscription:
		return fmt.Sprintf("%d%s%d", r.ClubID, subscriptionSeparator, r.PlanID)
	default:
		return strconv.FormatInt(r.BookingID, 10)
	}
}

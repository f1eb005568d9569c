package store

import (
	"database/sql"
	"time"
)

const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCanceled  = "CANCELED"

	PaymentStatusUnpaid  = "UNPAID"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusPaid    = "PAID"

	TransactionTypeIncome  = "INCOME"
	TransactionTypeExpense = "EXPENSE"

	TransactionCategoryBooking        = "BOOKING"
	TransactionCategoryBookingDeposit = "BOOKING_DEPOSIT"
	TransactionCategoryMembershipFee  = "MEMBERSHIP_FEE"

	MembershipStatusActive    = "ACTIVE"
	MembershipStatusCancelled = "CANCELLED"

	SubscriptionStatusNone       = "none"
	SubscriptionStatusAuthorized = "authorized"
)

type Club struct {
	ID                 int64
	Name               string
	Slug               string
	OpenTime           string
	CloseTime          string
	SlotDurationMin    int64
	TzOffsetMin        int64
	DefaultPrice       int64
	GatewayAccessToken sql.NullString
	SubscriptionStatus string
	SubscriptionPlanID sql.NullInt64
	NextBillingAt      sql.NullTime
	CreatedAt          time.Time
}

type Court struct {
	ID          int64
	ClubID      int64
	Name        string
	Sport       string
	CourtType   string
	Active      bool
	DurationMin sql.NullInt64
	SortOrder   int64
	CreatedAt   time.Time
}

type PriceRule struct {
	ID          int64
	ClubID      int64
	DaysMask    int64
	StartTime   string
	EndTime     string
	Price       int64
	MemberPrice sql.NullInt64
	Priority    int64
	ValidFrom   sql.NullString
	ValidUntil  sql.NullString
	CreatedAt   time.Time
}

type Client struct {
	ID                  int64
	ClubID              int64
	Name                string
	Phone               string
	Email               sql.NullString
	IsMember            bool
	MembershipExpiresAt sql.NullTime
	CreatedAt           time.Time
}

type Booking struct {
	ID            int64
	ClubID        int64
	CourtID       int64
	ClientID      sql.NullInt64
	GuestName     sql.NullString
	GuestPhone    sql.NullString
	StartTime     time.Time
	EndTime       time.Time
	Price         int64
	Status        string
	PaymentStatus string
	PaymentMethod sql.NullString
	RecurringID   sql.NullString
	CreatedAt     time.Time
}

type CashRegister struct {
	ID           int64
	ClubID       int64
	BusinessDate string
	OpenedAt     time.Time
	ClosedAt     sql.NullTime
}

type Transaction struct {
	ID         int64
	ClubID     int64
	RegisterID int64
	BookingID  sql.NullInt64
	ClientID   sql.NullInt64
	Type       string
	Category   string
	Amount     int64
	Method     string
	CreatedAt  time.Time
}

type MembershipPlan struct {
	ID              int64
	ClubID          sql.NullInt64
	Name            string
	Price           int64
	DurationDays    int64
	DiscountPercent int64
	CreatedAt       time.Time
}

type Membership struct {
	ID        int64
	ClubID    int64
	ClientID  int64
	PlanID    int64
	Status    string
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
}

type GatewayEvent struct {
	PaymentID string
	Kind      string
	AppliedAt time.Time
}

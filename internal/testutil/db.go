package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/7Francus7/CourtOps-sub003/internal/db"
	"github.com/7Francus7/CourtOps-sub003/internal/store"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// ClubParams tweaks the fixture club. Zero values take the defaults below.
type ClubParams struct {
	Slug            string
	OpenTime        string
	CloseTime       string
	SlotDurationMin int64
	TzOffsetMin     int64
	DefaultPrice    int64
}

// CreateClub inserts a fixture club. Defaults: 08:00-23:00, 90 minute slots,
// UTC-3, default price 10000.
func CreateClub(t *testing.T, database *db.DB, p ClubParams) store.Club {
	t.Helper()

	if p.Slug == "" {
		p.Slug = "test-club"
	}
	if p.OpenTime == "" {
		p.OpenTime = "08:00"
	}
	if p.CloseTime == "" {
		p.CloseTime = "23:00"
	}
	if p.SlotDurationMin == 0 {
		p.SlotDurationMin = 90
	}
	if p.TzOffsetMin == 0 {
		p.TzOffsetMin = -180
	}
	if p.DefaultPrice == 0 {
		p.DefaultPrice = 10000
	}

	club, err := database.Queries.CreateClub(context.Background(), store.CreateClubParams{
		Name:            "Test Club",
		Slug:            p.Slug,
		OpenTime:        p.OpenTime,
		CloseTime:       p.CloseTime,
		SlotDurationMin: p.SlotDurationMin,
		TzOffsetMin:     p.TzOffsetMin,
		DefaultPrice:    p.DefaultPrice,
	})
	if err != nil {
		t.Fatalf("create test club: %v", err)
	}
	return club
}

// CreateCourt inserts a fixture court for the club.
func CreateCourt(t *testing.T, database *db.DB, clubID int64, name string) store.Court {
	t.Helper()

	court, err := database.Queries.CreateCourt(context.Background(), store.CreateCourtParams{
		ClubID:    clubID,
		Name:      name,
		Sport:     "padel",
		CourtType: "indoor",
	})
	if err != nil {
		t.Fatalf("create test court: %v", err)
	}
	return court
}

// At builds a club-local time on the club's zone from a civil date and HH:mm.
func At(t *testing.T, club store.Club, date, tod string) time.Time {
	t.Helper()

	parsed, err := time.ParseInLocation("2006-01-02 15:04", date+" "+tod, club.Location())
	if err != nil {
		t.Fatalf("parse time %s %s: %v", date, tod, err)
	}
	return parsed
}

// NullStr wraps a string for nullable columns.
func NullStr(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

// NullInt wraps an int64 for nullable columns.
func NullInt(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

// NullTime wraps a time for nullable columns.
func NullTime(v time.Time) sql.NullTime {
	if v.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v, Valid: true}
}

package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tiketa/tiketa-backend/internal/models"
)

// newTestDB opens an in-memory store with the same constraints production
// carries: translated duplicate-key errors and the partial unique index over
// live tickets. A single connection keeps the in-memory database alive and
// serializes concurrent test traffic the way the pooled driver would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Event{}, &models.Ticket{}, &models.Transaction{}))
	require.NoError(t, db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_event_owner_live
		ON tickets (event_id, owner_id)
		WHERE status <> 'cancelled'`).Error)

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:    username,
		UID:         "uid-" + username,
		AccessToken: "token-" + username,
		Roles:       []string{"user"},
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedEvent(t *testing.T, db *gorm.DB, eventID string, capacity int, ticketType models.TicketType, price decimal.Decimal, organizer *models.User) *models.Event {
	t.Helper()

	event := &models.Event{
		EventID:     eventID,
		Title:       "Test Event " + eventID,
		Date:        time.Now().Add(48 * time.Hour),
		Time:        "19:00",
		MeetingType: models.MeetingPhysical,
		Location:    "Test Hall",
		Capacity:    capacity,
		TicketType:  ticketType,
		Price:       price,
		OrganizerID: organizer.ID,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func seedFreeEvent(t *testing.T, db *gorm.DB, eventID string, capacity int, organizer *models.User) *models.Event {
	return seedEvent(t, db, eventID, capacity, models.TicketTypeFree, decimal.Zero, organizer)
}

func countTickets(t *testing.T, db *gorm.DB, event *models.Event) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).
		Where("event_id = ? AND status <> ?", event.ID, models.TicketCancelled).
		Count(&count).Error)
	return count
}

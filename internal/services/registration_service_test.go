package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiketa/tiketa-backend/internal/models"
)

func TestRegisterForEvent_FreePath(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	organizer := seedUser(t, db, "organizer")
	attendee := seedUser(t, db, "attendee")
	event := seedFreeEvent(t, db, "E1", 1, organizer)

	ticket, err := svc.RegisterForEvent(context.Background(), event.EventID, attendee.Username)
	require.NoError(t, err)
	assert.Equal(t, models.TicketActive, ticket.Status)
	assert.True(t, ticket.Price.IsZero())
	assert.NotEmpty(t, ticket.TokenID)
	assert.Equal(t, attendee.ID, ticket.OwnerID)

	// Capacity 1 is now exhausted for anyone else.
	other := seedUser(t, db, "other")
	_, err = svc.RegisterForEvent(context.Background(), event.EventID, other.Username)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestRegisterForEvent_EventNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)
	seedUser(t, db, "attendee")

	_, err := svc.RegisterForEvent(context.Background(), "missing", "attendee")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRegisterForEvent_UserNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	organizer := seedUser(t, db, "organizer")
	event := seedFreeEvent(t, db, "E1", 5, organizer)

	_, err := svc.RegisterForEvent(context.Background(), event.EventID, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterForEvent_DuplicateRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	organizer := seedUser(t, db, "organizer")
	attendee := seedUser(t, db, "attendee")
	event := seedFreeEvent(t, db, "E1", 10, organizer)

	_, err := svc.RegisterForEvent(context.Background(), event.EventID, attendee.Username)
	require.NoError(t, err)

	_, err = svc.RegisterForEvent(context.Background(), event.EventID, attendee.Username)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.EqualValues(t, 1, countTickets(t, db, event))
}

func TestRegisterForEvent_PaidEventNeedsPaymentFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	organizer := seedUser(t, db, "organizer")
	attendee := seedUser(t, db, "attendee")
	event := seedEvent(t, db, "E1", 10, models.TicketTypePaid, decimal.NewFromInt(20), organizer)

	_, err := svc.RegisterForEvent(context.Background(), event.EventID, attendee.Username)
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.EqualValues(t, 0, countTickets(t, db, event))
}

func TestRegisterForEvent_ConcurrentNeverOverbooks(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	const capacity = 5
	const attempts = 20

	organizer := seedUser(t, db, "organizer")
	event := seedFreeEvent(t, db, "E1", capacity, organizer)

	users := make([]*models.User, attempts)
	for i := range users {
		users[i] = seedUser(t, db, fmt.Sprintf("attendee-%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RegisterForEvent(context.Background(), event.EventID, users[i].Username)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrCapacityExceeded)
		}
	}
	assert.Equal(t, capacity, succeeded)
	assert.EqualValues(t, capacity, countTickets(t, db, event))
}

func TestRegisterForEvent_ConcurrentDuplicateSingleTicket(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	organizer := seedUser(t, db, "organizer")
	attendee := seedUser(t, db, "attendee")
	event := seedFreeEvent(t, db, "E1", 100, organizer)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RegisterForEvent(context.Background(), event.EventID, attendee.Username)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyRegistered)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 1, countTickets(t, db, event))
}

func TestIsRegistered(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	organizer := seedUser(t, db, "organizer")
	attendee := seedUser(t, db, "attendee")
	event := seedFreeEvent(t, db, "E1", 5, organizer)

	registered, err := svc.IsRegistered(context.Background(), event.EventID, attendee.Username)
	require.NoError(t, err)
	assert.False(t, registered)

	ticket, err := svc.RegisterForEvent(context.Background(), event.EventID, attendee.Username)
	require.NoError(t, err)

	registered, err = svc.IsRegistered(context.Background(), event.EventID, attendee.Username)
	require.NoError(t, err)
	assert.True(t, registered)

	// A cancelled ticket no longer counts as a registration.
	require.NoError(t, db.Model(&models.Ticket{}).
		Where("id = ?", ticket.ID).
		Update("status", models.TicketCancelled).Error)

	registered, err = svc.IsRegistered(context.Background(), event.EventID, attendee.Username)
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestListRegistrations_OrganizerOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	organizer := seedUser(t, db, "organizer")
	attendee := seedUser(t, db, "attendee")
	event := seedFreeEvent(t, db, "E1", 5, organizer)

	_, err := svc.RegisterForEvent(context.Background(), event.EventID, attendee.Username)
	require.NoError(t, err)

	_, err = svc.ListRegistrations(context.Background(), event.EventID, attendee.Username)
	assert.ErrorIs(t, err, ErrNotOrganizer)

	tickets, err := svc.ListRegistrations(context.Background(), event.EventID, organizer.Username)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	require.NotNil(t, tickets[0].Owner)
	assert.Equal(t, attendee.Username, tickets[0].Owner.Username)
}

func TestMyTickets(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)

	organizer := seedUser(t, db, "organizer")
	attendee := seedUser(t, db, "attendee")
	first := seedFreeEvent(t, db, "E1", 5, organizer)
	second := seedFreeEvent(t, db, "E2", 5, organizer)

	_, err := svc.RegisterForEvent(context.Background(), first.EventID, attendee.Username)
	require.NoError(t, err)
	_, err = svc.RegisterForEvent(context.Background(), second.EventID, attendee.Username)
	require.NoError(t, err)

	tickets, err := svc.MyTickets(context.Background(), attendee.Username)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		require.NotNil(t, ticket.Event)
		assert.Equal(t, attendee.ID, ticket.OwnerID)
	}
}

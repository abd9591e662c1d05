package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiketa/tiketa-backend/internal/models"
)

func validEventInput() *CreateEventInput {
	return &CreateEventInput{
		Title:       "Launch Night",
		Description: "Product launch",
		Date:        time.Now().Add(72 * time.Hour),
		Time:        "18:30",
		MeetingType: models.MeetingPhysical,
		Location:    "City Hall",
		Capacity:    50,
		TicketType:  models.TicketTypePaid,
		Price:       decimal.NewFromInt(15),
	}
}

func TestCreateEvent(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db)
	organizer := seedUser(t, db, "organizer")

	event, err := svc.CreateEvent(context.Background(), validEventInput(), organizer.Username)
	require.NoError(t, err)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, organizer.ID, event.OrganizerID)
	assert.True(t, event.Price.Equal(decimal.NewFromInt(15)))

	fetched, err := svc.GetEvent(context.Background(), event.EventID)
	require.NoError(t, err)
	require.NotNil(t, fetched.Organizer)
	assert.Equal(t, organizer.Username, fetched.Organizer.Username)
}

func TestCreateEvent_FreeEventZeroesPrice(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db)
	organizer := seedUser(t, db, "organizer")

	in := validEventInput()
	in.TicketType = models.TicketTypeFree
	in.Price = decimal.NewFromInt(99)

	event, err := svc.CreateEvent(context.Background(), in, organizer.Username)
	require.NoError(t, err)
	assert.True(t, event.Price.IsZero())
	assert.True(t, event.IsFree())
}

func TestCreateEvent_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db)
	organizer := seedUser(t, db, "organizer")

	cases := []struct {
		name   string
		mutate func(*CreateEventInput)
	}{
		{"missing title", func(in *CreateEventInput) { in.Title = "" }},
		{"missing date", func(in *CreateEventInput) { in.Date = time.Time{} }},
		{"missing time", func(in *CreateEventInput) { in.Time = "" }},
		{"missing location", func(in *CreateEventInput) { in.Location = "" }},
		{"zero capacity", func(in *CreateEventInput) { in.Capacity = 0 }},
		{"unknown meeting type", func(in *CreateEventInput) { in.MeetingType = "hybrid" }},
		{"unknown ticket type", func(in *CreateEventInput) { in.TicketType = "donation" }},
		{"paid without price", func(in *CreateEventInput) { in.Price = decimal.Zero }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validEventInput()
			tc.mutate(in)
			_, err := svc.CreateEvent(context.Background(), in, organizer.Username)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db)

	_, err := svc.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListEvents(t *testing.T) {
	db := newTestDB(t)
	svc := NewEventService(db)

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedFreeEvent(t, db, "E1", 5, alice)
	seedFreeEvent(t, db, "E2", 5, alice)
	seedFreeEvent(t, db, "E3", 5, bob)

	all, err := svc.ListEvents(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.ListEvents(context.Background(), alice.Username, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, event := range mine {
		assert.Equal(t, alice.ID, event.OrganizerID)
	}

	limited, err := svc.ListEvents(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

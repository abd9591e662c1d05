package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MeetingType string

const (
	MeetingPhysical MeetingType = "physical"
	MeetingOnline   MeetingType = "online"
)

type TicketType string

const (
	TicketTypeFree TicketType = "free"
	TicketTypePaid TicketType = "paid"
)

// Event is immutable after creation except for its informational ticket list.
// Capacity is authoritative via a count over tickets, never via len(Tickets).
type Event struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	EventID     string          `gorm:"column:event_id;unique;not null" json:"event_id"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null" json:"date"`
	Time        string          `gorm:"not null" json:"time"`
	MeetingType MeetingType     `gorm:"not null" json:"meeting_type"`
	Location    string          `gorm:"not null" json:"location"`
	Address     string          `json:"address"`
	Capacity    int             `gorm:"not null" json:"capacity"`
	TicketType  TicketType      `gorm:"not null" json:"ticket_type"`
	Price       decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"price"`
	Image       string          `json:"image"`
	OrganizerID uuid.UUID       `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer   *User           `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	Tickets     []Ticket        `gorm:"foreignKey:EventID;references:ID" json:"tickets,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	return
}

// IsFree reports whether registration requires no payment.
func (event *Event) IsFree() bool {
	return event.TicketType == TicketTypeFree
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	// TicketPending is a paid-path ticket awaiting settlement of its transaction.
	TicketPending TicketStatus = "pending"
	// TicketActive is redeemable at the venue.
	TicketActive TicketStatus = "active"
	// TicketUsed has been redeemed exactly once.
	TicketUsed TicketStatus = "used"
	// TicketCancelled is the terminal state of a failed or cancelled payment.
	TicketCancelled TicketStatus = "cancelled"
	// TicketTransferred has been handed to another user.
	TicketTransferred TicketStatus = "transferred"
)

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketPending: {TicketActive, TicketCancelled},
	TicketActive:  {TicketUsed, TicketTransferred},
}

// CanTransitionTo consults the ticket state machine. Used, cancelled and
// transferred are terminal.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s TicketStatus) Terminal() bool {
	return len(ticketTransitions[s]) == 0
}

// Ticket belongs to exactly one event and one owner. TokenID is the QR
// payload and the verification key. A partial unique index over
// (event_id, owner_id) for non-cancelled tickets enforces the
// one-ticket-per-attendee invariant at the store, not in application code.
type Ticket struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	EventID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Event     *Event          `gorm:"foreignKey:EventID;references:ID" json:"event,omitempty"`
	OwnerID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Owner     *User           `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Price     decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"price"`
	TokenID   string          `gorm:"unique;not null" json:"token_id"`
	Status    TicketStatus    `gorm:"not null;default:'active'" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	if ticket.TokenID == "" {
		ticket.TokenID = uuid.NewString()
	}
	return
}

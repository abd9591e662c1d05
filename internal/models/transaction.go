package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionTransfer TransactionType = "transfer"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending: {TransactionCompleted, TransactionFailed},
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transactionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the transaction is settled. A terminal transaction
// receiving another terminal transition resolves to a no-op, never an error.
func (s TransactionStatus) Terminal() bool {
	return len(transactionTransitions[s]) == 0
}

// Transaction links a payer, the event organizer and the ticket being paid
// for. TxHash starts as the platform payment identifier and is overwritten
// with the on-chain transaction id at completion. Only the payment
// reconciliation service mutates it; it is never deleted.
type Transaction struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	FromID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"-"`
	From      *User             `gorm:"foreignKey:FromID" json:"from,omitempty"`
	ToID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"-"`
	To        *User             `gorm:"foreignKey:ToID" json:"to,omitempty"`
	TicketID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"-"`
	Ticket    *Ticket           `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
	Amount    decimal.Decimal   `gorm:"type:decimal(20,8);not null" json:"amount"`
	TxHash    string            `gorm:"column:tx_hash;unique;not null" json:"tx_hash"`
	Type      TransactionType   `gorm:"not null" json:"type"`
	Status    TransactionStatus `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (txn *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return
}

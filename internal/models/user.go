package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is created or refreshed on every successful sign-in, keyed by the
// platform uid. AccessToken always holds the most recent platform credential.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Username    string    `gorm:"unique;not null" json:"username"`
	UID         string    `gorm:"column:uid;unique;not null" json:"uid"`
	AccessToken string    `gorm:"not null" json:"-"`
	Roles       []string  `gorm:"serializer:json" json:"roles"`
	Events      []Event   `gorm:"foreignKey:OrganizerID" json:"events,omitempty"`
	Tickets     []Ticket  `gorm:"foreignKey:OwnerID" json:"tickets,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}

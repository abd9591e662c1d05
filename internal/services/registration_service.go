package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiketa/tiketa-backend/internal/models"
	"github.com/tiketa/tiketa-backend/internal/monitoring"
)

// RegistrationService issues tickets while holding the capacity and
// one-ticket-per-attendee invariants. Both are enforced inside the store:
// capacity by a conditional insert, duplicates by a partial unique index over
// non-cancelled tickets.
type RegistrationService struct {
	db *gorm.DB
}

func NewRegistrationService(db *gorm.DB) *RegistrationService {
	return &RegistrationService{db: db}
}

// RegisterForEvent registers the user for a free event and returns the active
// ticket. Paid events must go through the payment approval flow instead.
func (s *RegistrationService) RegisterForEvent(ctx context.Context, eventID, username string) (*models.Ticket, error) {
	event, err := findEventByEventID(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}

	user, err := findUserByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}

	if !event.IsFree() {
		return nil, ErrPaymentRequired
	}

	ticket, err := issueTicket(ctx, s.db, event, user, event.Price, models.TicketActive)
	if err != nil {
		monitoring.RecordRegistration("rejected")
		return nil, err
	}

	monitoring.RecordRegistration("registered")
	return ticket, nil
}

// IsRegistered reports whether the user holds a non-cancelled ticket for the
// event.
func (s *RegistrationService) IsRegistered(ctx context.Context, eventID, username string) (bool, error) {
	event, err := findEventByEventID(ctx, s.db, eventID)
	if err != nil {
		return false, err
	}

	user, err := findUserByUsername(ctx, s.db, username)
	if err != nil {
		return false, err
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("event_id = ? AND owner_id = ? AND status <> ?", event.ID, user.ID, models.TicketCancelled).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRegistrations returns every ticket issued for the event, newest first.
// Only the event organizer may list them.
func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID, username string) ([]models.Ticket, error) {
	event, err := findEventByEventID(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}

	user, err := findUserByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}

	if event.OrganizerID != user.ID {
		return nil, ErrNotOrganizer
	}

	var tickets []models.Ticket
	err = s.db.WithContext(ctx).Preload("Owner").
		Where("event_id = ?", event.ID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// MyTickets returns the user's tickets with their event summaries, newest
// first.
func (s *RegistrationService) MyTickets(ctx context.Context, username string) ([]models.Ticket, error) {
	user, err := findUserByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}

	var tickets []models.Ticket
	err = s.db.WithContext(ctx).Preload("Event").
		Where("owner_id = ?", user.ID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// TicketForOwner fetches a ticket by its token on behalf of its owner.
func (s *RegistrationService) TicketForOwner(ctx context.Context, tokenID, username string) (*models.Ticket, error) {
	user, err := findUserByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}

	var ticket models.Ticket
	err = s.db.WithContext(ctx).Preload("Event").
		Where("token_id = ? AND owner_id = ?", tokenID, user.ID).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// issueTicket inserts a ticket guarded by the event capacity. It first takes
// the event row's write lock inside a transaction, so concurrent registrations
// for the same event serialize and the capacity count always sees every
// committed ticket; the guarded insert then cannot pass the count twice. The
// partial unique index on (event_id, owner_id) turns a duplicate registration
// into ErrAlreadyRegistered regardless of interleaving. Cancelled tickets
// count toward neither.
func issueTicket(ctx context.Context, db *gorm.DB, event *models.Event, owner *models.User, price decimal.Decimal, status models.TicketStatus) (*models.Ticket, error) {
	now := time.Now().UTC()
	ticket := &models.Ticket{
		ID:        uuid.New(),
		EventID:   event.ID,
		OwnerID:   owner.ID,
		Price:     price,
		TokenID:   uuid.NewString(),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := tx.Exec(`UPDATE events SET capacity = capacity WHERE id = ?`, event.ID)
		if lock.Error != nil {
			return lock.Error
		}
		if lock.RowsAffected == 0 {
			return ErrEventNotFound
		}

		result := tx.Exec(`
			INSERT INTO tickets (id, event_id, owner_id, price, token_id, status, created_at, updated_at)
			SELECT ?, ?, ?, ?, ?, ?, ?, ?
			WHERE (SELECT COUNT(*) FROM tickets WHERE event_id = ? AND status <> ?) < ?`,
			ticket.ID, ticket.EventID, ticket.OwnerID, ticket.Price, ticket.TokenID, ticket.Status,
			ticket.CreatedAt, ticket.UpdatedAt,
			event.ID, models.TicketCancelled, event.Capacity,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCapacityExceeded
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	return ticket, nil
}

func findEventByEventID(ctx context.Context, db *gorm.DB, eventID string) (*models.Event, error) {
	var event models.Event
	if err := db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func findUserByUsername(ctx context.Context, db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

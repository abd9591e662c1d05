package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiketa/tiketa-backend/internal/models"
)

// CreateEventInput carries the organizer's event details. Image is an opaque
// reference string; upload and delivery happen elsewhere.
type CreateEventInput struct {
	Title       string
	Description string
	Date        time.Time
	Time        string
	MeetingType models.MeetingType
	Location    string
	Address     string
	Capacity    int
	TicketType  models.TicketType
	Price       decimal.Decimal
	Image       string
}

func (in *CreateEventInput) validate() error {
	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case in.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrValidation)
	case in.Time == "":
		return fmt.Errorf("%w: time is required", ErrValidation)
	case in.Location == "":
		return fmt.Errorf("%w: location is required", ErrValidation)
	case in.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrValidation)
	}

	if in.MeetingType != models.MeetingPhysical && in.MeetingType != models.MeetingOnline {
		return fmt.Errorf("%w: unknown meeting type %q", ErrValidation, in.MeetingType)
	}

	switch in.TicketType {
	case models.TicketTypeFree:
	case models.TicketTypePaid:
		if !in.Price.IsPositive() {
			return fmt.Errorf("%w: paid events require a valid price", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown ticket type %q", ErrValidation, in.TicketType)
	}
	return nil
}

// EventService owns event creation and lookups. Events are immutable after
// creation; the organizer reference never changes.
type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent validates the input and creates the event owned by the calling
// user. Free events always carry a zero price.
func (s *EventService) CreateEvent(ctx context.Context, in *CreateEventInput, username string) (*models.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	organizer, err := findUserByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}

	price := in.Price
	if in.TicketType == models.TicketTypeFree {
		price = decimal.Zero
	}

	event := &models.Event{
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		MeetingType: in.MeetingType,
		Location:    in.Location,
		Address:     in.Address,
		Capacity:    in.Capacity,
		TicketType:  in.TicketType,
		Price:       price,
		Image:       in.Image,
		OrganizerID: organizer.ID,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}

	event.Organizer = organizer
	return event, nil
}

// GetEvent fetches a single event by its public id with the organizer
// summary.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Preload("Organizer").
		Where("event_id = ?", eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// ListEvents returns the latest events, optionally only those organized by
// the given user.
func (s *EventService) ListEvents(ctx context.Context, organizer string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 10
	}

	query := s.db.WithContext(ctx).Model(&models.Event{}).Preload("Organizer")
	if organizer != "" {
		user, err := findUserByUsername(ctx, s.db, organizer)
		if err != nil {
			return nil, err
		}
		query = query.Where("organizer_id = ?", user.ID)
	}

	var events []models.Event
	if err := query.Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

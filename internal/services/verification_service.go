package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tiketa/tiketa-backend/internal/models"
	"github.com/tiketa/tiketa-backend/internal/monitoring"
)

// VerificationResult is the outcome of scanning a ticket at the door.
// Unknown tokens and replayed scans are expected occurrences, reported as
// unsuccessful results rather than errors.
type VerificationResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Ticket  *models.Ticket `json:"ticket,omitempty"`
}

// VerificationService redeems tickets exactly once.
type VerificationService struct {
	db *gorm.DB
}

func NewVerificationService(db *gorm.DB) *VerificationService {
	return &VerificationService{db: db}
}

// VerifyTicket looks up the scanned token and, if the ticket is still active,
// marks it used. The transition is a single conditional update keyed on the
// current status, so concurrent scans of the same token produce exactly one
// success. Errors are returned only for store failures.
func (s *VerificationService) VerifyTicket(ctx context.Context, tokenID string) (*VerificationResult, error) {
	if tokenID == "" {
		monitoring.RecordVerification("invalid")
		return &VerificationResult{Success: false, Message: "Invalid QR data"}, nil
	}

	var ticket models.Ticket
	err := s.db.WithContext(ctx).Preload("Owner").Preload("Event").
		Where("token_id = ?", tokenID).
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			monitoring.RecordVerification("not_found")
			return &VerificationResult{Success: false, Message: "Ticket not found"}, nil
		}
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND status = ?", ticket.ID, models.TicketActive).
		Update("status", models.TicketUsed)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		// Someone else redeemed it first, or it was never redeemable.
		var current models.Ticket
		if err := s.db.WithContext(ctx).Where("id = ?", ticket.ID).First(&current).Error; err != nil {
			return nil, err
		}
		switch current.Status {
		case models.TicketUsed:
			monitoring.RecordVerification("already_used")
			return &VerificationResult{Success: false, Message: "Ticket already used"}, nil
		default:
			monitoring.RecordVerification("not_active")
			return &VerificationResult{Success: false, Message: "Ticket is not active"}, nil
		}
	}

	ticket.Status = models.TicketUsed
	monitoring.RecordVerification("verified")
	return &VerificationResult{
		Success: true,
		Message: "Ticket verified and marked as used",
		Ticket:  &ticket,
	}, nil
}

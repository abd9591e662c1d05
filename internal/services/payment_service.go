package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/tiketa/tiketa-backend/internal/models"
	"github.com/tiketa/tiketa-backend/internal/monitoring"
	"github.com/tiketa/tiketa-backend/internal/platform"
)

// PlatformAPI is the slice of the payment platform this service depends on.
type PlatformAPI interface {
	GetPayment(ctx context.Context, paymentID string) (*platform.Payment, error)
	Approve(ctx context.Context, paymentID string) error
	Complete(ctx context.Context, paymentID, txid string) error
	TransactionDetail(ctx context.Context, txURL string) (*platform.TransactionDetail, error)
}

// Notifier pushes payment outcomes to the payer. Implementations are
// best-effort; a failed notification never fails the payment.
type Notifier interface {
	PaymentCompleted(ctx context.Context, username, paymentID, tokenID string)
	PaymentCancelled(ctx context.Context, username, paymentID string)
}

// IncompletePaymentPayload is the platform's callback body for a payment it
// considers unresolved. Delivered at least once, with nobody awaiting the
// outcome.
type IncompletePaymentPayload struct {
	Payment struct {
		Identifier  string `json:"identifier"`
		Transaction *struct {
			TxID string `json:"txid"`
			Link string `json:"_link"`
		} `json:"transaction"`
	} `json:"payment" binding:"required"`
}

// PaymentService drives a transaction from pending to completed or failed,
// keeping the linked ticket consistent with the platform's view of the
// payment. All status transitions are conditional updates so duplicate
// platform callbacks cannot corrupt settled records.
type PaymentService struct {
	db       *gorm.DB
	platform PlatformAPI
	notifier Notifier
}

func NewPaymentService(db *gorm.DB, platformAPI PlatformAPI, notifier Notifier) *PaymentService {
	return &PaymentService{db: db, platform: platformAPI, notifier: notifier}
}

// ApprovePayment registers the payer for the event behind the payment and
// tells the platform this server is ready to complete it. The ticket starts
// out pending and only turns active once the payment completes. Ticket and
// transaction are created in one store transaction; a failure leaves neither.
// Retried approvals for a payment that already has a pending transaction
// re-acknowledge the platform and return the existing pair.
func (s *PaymentService) ApprovePayment(ctx context.Context, paymentID, username string) (*models.Ticket, *models.Transaction, error) {
	if paymentID == "" {
		return nil, nil, fmt.Errorf("%w: missing payment id", ErrValidation)
	}

	user, err := findUserByUsername(ctx, s.db, username)
	if err != nil {
		return nil, nil, err
	}

	// Platform retries deliver the same payment id more than once.
	if existing, err := s.findTransaction(ctx, paymentID); err == nil {
		if existing.FromID != user.ID {
			return nil, nil, fmt.Errorf("%w: payment %s belongs to another user", ErrValidation, paymentID)
		}
		if existing.Status == models.TransactionPending {
			if err := s.platform.Approve(ctx, paymentID); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrPlatformUnavailable, err)
			}
		}
		return existing.Ticket, existing, nil
	} else if !errors.Is(err, ErrTransactionNotFound) {
		return nil, nil, err
	}

	payment, err := s.platform.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPlatformUnavailable, err)
	}
	if payment.Metadata.EventID == "" {
		return nil, nil, fmt.Errorf("%w: payment %s carries no event metadata", ErrValidation, paymentID)
	}

	event, err := findEventByEventID(ctx, s.db, payment.Metadata.EventID)
	if err != nil {
		return nil, nil, err
	}

	price := event.Price
	if !price.IsPositive() {
		price = payment.Metadata.Price
	}

	var ticket *models.Ticket
	var txn *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ticket, err = issueTicket(ctx, tx, event, user, price, models.TicketPending)
		if err != nil {
			return err
		}

		txn = &models.Transaction{
			FromID:   user.ID,
			ToID:     event.OrganizerID,
			TicketID: ticket.ID,
			Amount:   price,
			TxHash:   paymentID,
			Type:     models.TransactionPurchase,
			Status:   models.TransactionPending,
		}
		return tx.Create(txn).Error
	})
	if err != nil {
		monitoring.RecordPaymentTransition("approve", "rejected")
		return nil, nil, err
	}

	if err := s.platform.Approve(ctx, paymentID); err != nil {
		// Records stay pending; the platform retry path above recovers them.
		monitoring.RecordPaymentTransition("approve", "platform_error")
		return nil, nil, fmt.Errorf("%w: %v", ErrPlatformUnavailable, err)
	}

	monitoring.RecordPaymentTransition("approve", "approved")
	ticket.Event = event
	return ticket, txn, nil
}

// CompletePayment settles the transaction identified by the payment id,
// records the on-chain txid, activates the ticket and acknowledges the
// platform. Completing an already-completed payment is a no-op success.
func (s *PaymentService) CompletePayment(ctx context.Context, paymentID, txid string) (*models.Transaction, error) {
	txn, err := s.findTransaction(ctx, paymentID, txid)
	if err != nil {
		return nil, err
	}

	if txn.Status.Terminal() {
		if txn.Status == models.TransactionCompleted {
			// Re-acknowledge so the platform stops retrying.
			if err := s.platform.Complete(ctx, paymentID, txn.TxHash); err != nil {
				log.Printf("payment %s: re-acknowledge failed: %v", paymentID, err)
			}
		}
		monitoring.RecordPaymentTransition("complete", "noop")
		return txn, nil
	}

	if err := s.settle(ctx, txn, txid); err != nil {
		return nil, err
	}
	if txn.Status != models.TransactionCompleted {
		// A concurrent cancellation won; nothing to acknowledge.
		monitoring.RecordPaymentTransition("complete", "noop")
		return txn, nil
	}

	if err := s.platform.Complete(ctx, paymentID, txid); err != nil {
		// Local state is settled; a platform retry lands in the no-op branch
		// above and re-acknowledges.
		return txn, fmt.Errorf("%w: %v", ErrPlatformUnavailable, err)
	}

	monitoring.RecordPaymentTransition("complete", "completed")
	s.notifyCompleted(ctx, txn, paymentID)
	return txn, nil
}

// CancelPayment marks the transaction failed and its ticket cancelled,
// freeing the attendee's registration slot. Cancelling a transaction already
// in a terminal state is a no-op success and leaves settled records alone.
// The platform is not notified.
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID string) (*models.Transaction, error) {
	txn, err := s.findTransaction(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if txn.Status.Terminal() {
		monitoring.RecordPaymentTransition("cancel", "noop")
		return txn, nil
	}

	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionPending).
		Update("status", models.TransactionFailed)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race against a concurrent settlement.
		return s.findTransaction(ctx, paymentID)
	}
	txn.Status = models.TransactionFailed

	err = s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND status = ?", txn.TicketID, models.TicketPending).
		Update("status", models.TicketCancelled).Error
	if err != nil {
		return nil, err
	}

	monitoring.RecordPaymentTransition("cancel", "cancelled")
	if s.notifier != nil && txn.From != nil {
		s.notifier.PaymentCancelled(ctx, txn.From.Username, paymentID)
	}
	return txn, nil
}

// HandleIncompletePayment is the background reconciliation sweep for payments
// the platform reports as unresolved. It independently re-derives completion:
// the chain record behind the payment must carry the payment id as memo and
// report success before the transaction is settled. Nothing awaits this call,
// so every failure is logged and swallowed.
func (s *PaymentService) HandleIncompletePayment(ctx context.Context, payload *IncompletePaymentPayload) {
	paymentID := payload.Payment.Identifier
	if paymentID == "" {
		log.Printf("incomplete payment: missing identifier")
		return
	}

	var txid, txURL string
	if payload.Payment.Transaction != nil {
		txid = payload.Payment.Transaction.TxID
		txURL = payload.Payment.Transaction.Link
	}

	txn, err := s.findTransaction(ctx, paymentID, txid)
	if err != nil {
		log.Printf("incomplete payment %s: %v", paymentID, err)
		return
	}

	if txn.Status.Terminal() {
		if txn.Status == models.TransactionCompleted {
			if err := s.platform.Complete(ctx, paymentID, txn.TxHash); err != nil {
				log.Printf("incomplete payment %s: re-acknowledge failed: %v", paymentID, err)
			}
		}
		return
	}

	detail, err := s.platform.TransactionDetail(ctx, txURL)
	if err != nil {
		log.Printf("incomplete payment %s: %v", paymentID, err)
		return
	}
	if detail.Memo != paymentID {
		log.Printf("incomplete payment %s: memo %q does not match payment id", paymentID, detail.Memo)
		return
	}
	if !detail.Success {
		log.Printf("incomplete payment %s: chain reports failure", paymentID)
		return
	}

	if err := s.settle(ctx, txn, txid); err != nil {
		log.Printf("incomplete payment %s: %v", paymentID, err)
		return
	}
	if txn.Status != models.TransactionCompleted {
		log.Printf("incomplete payment %s: cancelled concurrently, leaving as %s", paymentID, txn.Status)
		return
	}

	if err := s.platform.Complete(ctx, paymentID, txid); err != nil {
		log.Printf("incomplete payment %s: acknowledge failed: %v", paymentID, err)
	}

	monitoring.RecordPaymentTransition("reconcile", "completed")
	s.notifyCompleted(ctx, txn, paymentID)
	log.Printf("completed incomplete payment %s", paymentID)
}

// settle flips the transaction to completed and its ticket to active. Both
// updates are conditional on the current status, so a concurrent or repeated
// settlement leaves records untouched. When the transaction update loses a
// race, the ticket only activates if the winner also completed it; a ticket
// must never be active while its transaction is failed.
func (s *PaymentService) settle(ctx context.Context, txn *models.Transaction, txid string) error {
	updates := map[string]any{"status": models.TransactionCompleted}
	if txid != "" {
		updates["tx_hash"] = txid
	}

	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var current models.Transaction
		if err := s.db.WithContext(ctx).Where("id = ?", txn.ID).First(&current).Error; err != nil {
			return err
		}
		txn.Status = current.Status
		txn.TxHash = current.TxHash
		if current.Status != models.TransactionCompleted {
			return nil
		}
	} else {
		txn.Status = models.TransactionCompleted
		if txid != "" {
			txn.TxHash = txid
		}
	}

	return s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND status = ?", txn.TicketID, models.TicketPending).
		Update("status", models.TicketActive).Error
}

func (s *PaymentService) notifyCompleted(ctx context.Context, txn *models.Transaction, paymentID string) {
	if s.notifier == nil || txn.From == nil {
		return
	}
	tokenID := ""
	if txn.Ticket != nil {
		tokenID = txn.Ticket.TokenID
	}
	s.notifier.PaymentCompleted(ctx, txn.From.Username, paymentID, tokenID)
}

// findTransaction locates a transaction by any of the given external
// identifiers. Settlement overwrites tx_hash with the on-chain txid, so
// retried callbacks may only know the payment under its newer hash.
func (s *PaymentService) findTransaction(ctx context.Context, hashes ...string) (*models.Transaction, error) {
	ids := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if h != "" {
			ids = append(ids, h)
		}
	}
	if len(ids) == 0 {
		return nil, ErrTransactionNotFound
	}

	var txn models.Transaction
	err := s.db.WithContext(ctx).Preload("Ticket").Preload("From").
		Where("tx_hash IN ?", ids).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

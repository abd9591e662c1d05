package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiketa/tiketa-backend/internal/helpers"
	"github.com/tiketa/tiketa-backend/internal/middleware"
	"github.com/tiketa/tiketa-backend/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type ApprovePaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
}

// Approve registers the payer for the event carried in the payment metadata
// and acknowledges readiness to the platform.
func (h *PaymentHandler) Approve(c *gin.Context) {
	username, ok := middleware.Username(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found in token.")
		return
	}

	var req ApprovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing paymentId in request body.")
		return
	}

	ticket, txn, err := h.payments.ApprovePayment(c.Request.Context(), req.PaymentID, username)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Payment approved and registered for event.",
		"ticket":      ticket,
		"transaction": txn,
	})
}

type CompletePaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
	TxID      string `json:"txid" binding:"required"`
}

// Complete settles the payment with its on-chain transaction id. Safe to call
// more than once.
func (h *PaymentHandler) Complete(c *gin.Context) {
	var req CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing paymentId or txid in request body.")
		return
	}

	txn, err := h.payments.CompletePayment(c.Request.Context(), req.PaymentID, req.TxID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Payment completed.",
		"transaction": txn,
	})
}

type CancelPaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
}

// Cancel marks the payment failed and frees the registration slot.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	var req CancelPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing paymentId in request body.")
		return
	}

	txn, err := h.payments.CancelPayment(c.Request.Context(), req.PaymentID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Payment cancelled.",
		"transaction": txn,
	})
}

// Incomplete receives the platform's unresolved-payment callback. The sweep
// runs in the background; nothing awaits its outcome, so the handler always
// acknowledges.
func (h *PaymentHandler) Incomplete(c *gin.Context) {
	var payload services.IncompletePaymentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment payload.")
		return
	}

	go h.payments.HandleIncompletePayment(context.Background(), &payload)

	c.JSON(http.StatusAccepted, gin.H{"message": "Payment reconciliation scheduled."})
}

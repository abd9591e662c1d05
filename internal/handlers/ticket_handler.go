package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/tiketa/tiketa-backend/internal/helpers"
	"github.com/tiketa/tiketa-backend/internal/middleware"
	"github.com/tiketa/tiketa-backend/internal/services"
)

type TicketHandler struct {
	registration *services.RegistrationService
	verification *services.VerificationService
}

func NewTicketHandler(registration *services.RegistrationService, verification *services.VerificationService) *TicketHandler {
	return &TicketHandler{registration: registration, verification: verification}
}

// MyTickets lists the caller's tickets with their event summaries.
func (h *TicketHandler) MyTickets(c *gin.Context) {
	username, ok := middleware.Username(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found in token.")
		return
	}

	tickets, err := h.registration.MyTickets(c.Request.Context(), username)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	formatted := make([]gin.H, 0, len(tickets))
	for _, ticket := range tickets {
		entry := gin.H{
			"id":        ticket.ID,
			"ticket_id": ticket.TokenID,
			"status":    ticket.Status,
		}
		if ticket.Event != nil {
			entry["event"] = gin.H{
				"event_id":     ticket.Event.EventID,
				"title":        ticket.Event.Title,
				"date":         ticket.Event.Date,
				"location":     ticket.Event.Location,
				"meeting_type": ticket.Event.MeetingType,
				"price":        ticket.Event.Price,
				"image":        ticket.Event.Image,
			}
		}
		formatted = append(formatted, entry)
	}

	c.JSON(http.StatusOK, formatted)
}

// QR renders the caller's ticket token as a PNG QR code, the payload the
// venue scanner consumes.
func (h *TicketHandler) QR(c *gin.Context) {
	username, ok := middleware.Username(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found in token.")
		return
	}

	ticket, err := h.registration.TicketForOwner(c.Request.Context(), c.Param("tokenId"), username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		helpers.RespondWithDomainError(c, err)
		return
	}

	qrImage, err := qrcode.Encode(ticket.TokenID, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

type VerifyTicketRequest struct {
	QRData struct {
		TicketID string `json:"ticketId"`
	} `json:"qrData"`
}

// Verify redeems a scanned ticket. Unknown tokens and replays answer 200 with
// an unsuccessful result; scanning garbage is not a fault.
func (h *TicketHandler) Verify(c *gin.Context) {
	var req VerifyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, services.VerificationResult{Success: false, Message: "Invalid QR data"})
		return
	}

	result, err := h.verification.VerifyTicket(c.Request.Context(), req.QRData.TicketID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

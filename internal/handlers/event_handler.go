package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tiketa/tiketa-backend/internal/helpers"
	"github.com/tiketa/tiketa-backend/internal/middleware"
	"github.com/tiketa/tiketa-backend/internal/models"
	"github.com/tiketa/tiketa-backend/internal/services"
)

type EventHandler struct {
	events       *services.EventService
	registration *services.RegistrationService
}

func NewEventHandler(events *services.EventService, registration *services.RegistrationService) *EventHandler {
	return &EventHandler{events: events, registration: registration}
}

type CreateEventRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date" binding:"required"`
	Time        string          `json:"time" binding:"required"`
	MeetingType string          `json:"meetingType" binding:"required"`
	Location    string          `json:"location" binding:"required"`
	Address     string          `json:"address"`
	Capacity    int             `json:"capacity" binding:"required"`
	TicketType  string          `json:"ticketType" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

func (h *EventHandler) Create(c *gin.Context) {
	username, ok := middleware.Username(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found in token.")
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event details format.")
		return
	}

	event, err := h.events.CreateEvent(c.Request.Context(), &services.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		MeetingType: models.MeetingType(req.MeetingType),
		Location:    req.Location,
		Address:     req.Address,
		Capacity:    req.Capacity,
		TicketType:  models.TicketType(req.TicketType),
		Price:       req.Price,
		Image:       req.Image,
	}, username)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Event created successfully.",
		"event":   event,
	})
}

func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) List(c *gin.Context) {
	organizer := ""
	if c.Query("mine") == "true" {
		username, ok := middleware.Username(c)
		if !ok {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Sign in to list your events.")
			return
		}
		organizer = username
	}

	events, err := h.events.ListEvents(c.Request.Context(), organizer, 10)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Register issues a ticket for a free event. Paid events are redirected to
// the payment flow.
func (h *EventHandler) Register(c *gin.Context) {
	username, ok := middleware.Username(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found in token.")
		return
	}

	ticket, err := h.registration.RegisterForEvent(c.Request.Context(), c.Param("id"), username)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Successfully registered for event.",
		"ticket":  ticket,
	})
}

func (h *EventHandler) CheckRegistration(c *gin.Context) {
	username, ok := middleware.Username(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found in token.")
		return
	}

	registered, err := h.registration.IsRegistered(c.Request.Context(), c.Param("id"), username)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registered": registered})
}

// Registrations lists an event's attendees for its organizer.
func (h *EventHandler) Registrations(c *gin.Context) {
	username, ok := middleware.Username(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found in token.")
		return
	}

	tickets, err := h.registration.ListRegistrations(c.Request.Context(), c.Param("id"), username)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	registrations := make([]gin.H, 0, len(tickets))
	for _, ticket := range tickets {
		entry := gin.H{
			"id":     ticket.ID,
			"status": ticket.Status,
		}
		if ticket.Owner != nil {
			entry["username"] = ticket.Owner.Username
		}
		registrations = append(registrations, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":         len(registrations),
		"registrations": registrations,
	})
}

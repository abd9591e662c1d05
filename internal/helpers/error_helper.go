package helpers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiketa/tiketa-backend/internal/services"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithDomainError maps the service error taxonomy onto HTTP responses.
// Unexpected faults become a generic 500 with no internal detail leaked.
func RespondWithDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		RespondWithError(c, http.StatusUnauthorized, "Invalid or expired credential.")
	case errors.Is(err, services.ErrEventNotFound):
		RespondWithError(c, http.StatusNotFound, "Event not found.")
	case errors.Is(err, services.ErrUserNotFound):
		RespondWithError(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, services.ErrTransactionNotFound):
		RespondWithError(c, http.StatusNotFound, "Transaction not found.")
	case errors.Is(err, services.ErrCapacityExceeded):
		RespondWithError(c, http.StatusConflict, "Event capacity reached.")
	case errors.Is(err, services.ErrAlreadyRegistered):
		RespondWithError(c, http.StatusConflict, "You already registered for this event.")
	case errors.Is(err, services.ErrPaymentRequired):
		RespondWithError(c, http.StatusBadRequest, "This event requires payment. Use the payment flow to register.")
	case errors.Is(err, services.ErrNotOrganizer):
		RespondWithError(c, http.StatusForbidden, "You are not the organizer of this event.")
	case errors.Is(err, services.ErrValidation):
		RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPlatformUnavailable):
		RespondWithError(c, http.StatusServiceUnavailable, "Payment platform is unavailable. Please retry.")
	default:
		RespondWithError(c, http.StatusInternalServerError, "Something went wrong.")
	}
}

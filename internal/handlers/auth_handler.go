package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tiketa/tiketa-backend/internal/helpers"
	"github.com/tiketa/tiketa-backend/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type SignInRequest struct {
	AuthResult struct {
		AccessToken string `json:"accessToken" binding:"required"`
	} `json:"authResult" binding:"required"`
}

// SignIn verifies the platform access token and returns a session token plus
// the upserted user.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	user, token, err := h.auth.SignIn(c.Request.Context(), req.AuthResult.AccessToken)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User signed in",
		"token":   token,
		"user":    user,
	})
}

// SignOut acknowledges the sign-out; the session token is discarded
// client-side.
func (h *AuthHandler) SignOut(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "User signed out"})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/response"
	"github.com/stemsi/coursegrade/internal/service"
	"github.com/stemsi/coursegrade/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login godoc
// POST /api/v1/auth/login
// Exchanges email + password for an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), actor.ID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

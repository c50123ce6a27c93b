package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OldStager01/cold-autoscaler/api/middleware"
	"github.com/OldStager01/cold-autoscaler/internal/auth"
	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/database/queries"
	"github.com/OldStager01/cold-autoscaler/pkg/validation"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users       auth.UserStore
	authService *auth.Service
}

func NewAuthHandler(users auth.UserStore, authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		users:       users,
		authService: authService,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
}

// Login godoc
// @Summary      Obtain an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      LoginRequest  true  "Admin credentials"
// @Success      200          {object}  LoginResponse
// @Failure      400          {object}  ErrorResponse
// @Failure      401          {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	username := validation.SanitizeString(req.Username)
	if err := validation.ValidateUsername(username); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, queries.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		logger.ErrorCtxf(c.Request.Context(), "Failed to look up user %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to generate token"})
		return
	}

	if err := h.users.RecordLogin(ctx, user.ID); err != nil {
		logger.WarnCtxf(c.Request.Context(), "Failed to record login for %s: %v", user.Username, err)
	}

	expiresIn := int(h.authService.Duration().Seconds())

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AuthCookie, token, expiresIn, "/", "", true, true)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: expiresIn,
		Username:  user.Username,
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/service"
)

// LoginRequest represents the sign-in payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin handles POST /v1/session/login
func HandleLogin(sessions *service.SessionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}

		if err := sessions.Login(c.Request.Context(), req.Username, req.Password); err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, gin.H{"signed_in": true})
	}
}

// HandleLogout handles POST /v1/session/logout
func HandleLogout(sessions *service.SessionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sessions.Logout(c.Request.Context()); err != nil {
			respondError(c, err, logger)
			return
		}
		c.JSON(http.StatusOK, gin.H{"signed_in": false})
	}
}

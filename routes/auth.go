package routes

import (
	"net/http"
	"time"

	"bakasura-ingest/internal/config"
	"bakasura-ingest/internal/logger"
	"bakasura-ingest/utils"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin authenticates an operator against the configured password
// hash and issues a short-lived bearer token for the upload endpoints.
func HandleLogin(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Username and password are required", nil)
			return
		}

		if cfg.OperatorPasswordHash == "" {
			utils.RespondWithInternalError(c, "Operator authentication is not configured", nil)
			return
		}

		if !utils.CheckPassword(req.Password, cfg.OperatorPasswordHash) {
			logger.Warn("Failed login attempt", "username", req.Username, "ip", c.ClientIP())
			utils.RespondWithUnauthorized(c, "Invalid credentials")
			return
		}

		expiresIn := 24 * time.Hour
		if d, err := time.ParseDuration(cfg.JWTExpiresIn); err == nil && d > 0 {
			expiresIn = d
		}

		token, err := utils.GenerateJWT(req.Username, "operator", cfg.JWTSecret, expiresIn)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue token", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"token_type": "Bearer",
			"expires_in": int(expiresIn.Seconds()),
		})
	}
}

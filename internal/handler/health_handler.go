package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contactsbook/contacts-api/pkg/database"
	"github.com/contactsbook/contacts-api/pkg/redis"
)

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db  *database.PostgresDB
	rdb *redis.Client
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *database.PostgresDB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "contacts-api",
	})
}

// Ready checks if the service is ready to accept traffic
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{
		"database": "connected",
		"redis":    "connected",
	}
	healthy := true

	if err := h.db.HealthCheck(c.Request.Context()); err != nil {
		checks["database"] = "disconnected"
		healthy = false
	}
	if err := h.rdb.HealthCheck(c.Request.Context()); err != nil {
		checks["redis"] = "disconnected"
		healthy = false
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not_ready",
			"service": "contacts-api",
			"checks":  checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": "contacts-api",
		"checks":  checks,
	})
}

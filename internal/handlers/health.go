package handlers

import (
	"context"
	"time"

	"gatherly/internal/database"
	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports liveness and dependency status
type HealthHandler struct {
	mongodb *database.MongoDB
	redis   *services.RedisService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(mongodb *database.MongoDB, redis *services.RedisService) *HealthHandler {
	return &HealthHandler{mongodb: mongodb, redis: redis}
}

// Live is a bare liveness probe
// GET /health
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready checks Mongo and Redis connectivity
// GET /health/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	status := fiber.Map{"status": "ok"}
	healthy := true

	if err := h.mongodb.Ping(ctx); err != nil {
		status["mongodb"] = err.Error()
		healthy = false
	} else {
		status["mongodb"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			status["redis"] = err.Error()
			healthy = false
		} else {
			status["redis"] = "ok"
		}
	} else {
		status["redis"] = "disabled"
	}

	if !healthy {
		status["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}

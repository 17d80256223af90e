package handlers

import (
	"errors"
	"log"

	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors to HTTP statuses. Validation failures
// are 400, missing entities 404, everything else a logged 500.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		log.Printf("🚨 [HTTP] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

// currentUserID reads the authenticated user from request locals
func currentUserID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return "", errors.New("missing user context")
	}
	return userID, nil
}

// requireUser is respondError-compatible: it returns 401 directly when the
// request carries no authenticated user.
func requireUser(c *fiber.Ctx) (string, bool) {
	userID, err := currentUserID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
		return "", false
	}
	return userID, true
}

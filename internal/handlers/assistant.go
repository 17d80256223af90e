package handlers

import (
	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AssistantHandler exposes the query routing pipeline
type AssistantHandler struct {
	superAgent *services.SuperAgentService
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(superAgent *services.SuperAgentService) *AssistantHandler {
	return &AssistantHandler{superAgent: superAgent}
}

// QueryRequest is the body for an assistant question
type QueryRequest struct {
	Query string `json:"query"`
}

// Query runs one question through the routing pipeline
// POST /api/assistant/query
func (h *AssistantHandler) Query(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	response, err := h.superAgent.ProcessQuery(c.Context(), userID, req.Query)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(response)
}

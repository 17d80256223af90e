package handlers

import (
	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// InteractionHandler handles reactions, bookmarks, and shares
type InteractionHandler struct {
	interactionService *services.InteractionService
}

// NewInteractionHandler creates a new interaction handler
func NewInteractionHandler(interactionService *services.InteractionService) *InteractionHandler {
	return &InteractionHandler{interactionService: interactionService}
}

// InteractionRequest identifies a target and, for reactions, the type
type InteractionRequest struct {
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	ReactionType string `json:"reaction_type"`
}

// React toggles a reaction on a post or comment
// POST /api/interactions/react
func (h *InteractionHandler) React(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	interaction, active, err := h.interactionService.ToggleReaction(c.Context(), userID, req.TargetType, req.TargetID, req.ReactionType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"active": active, "interaction": interaction})
}

// Bookmark toggles a bookmark
// POST /api/interactions/bookmark
func (h *InteractionHandler) Bookmark(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	active, err := h.interactionService.ToggleBookmark(c.Context(), userID, req.TargetType, req.TargetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"bookmarked": active})
}

// Share records a share
// POST /api/interactions/share
func (h *InteractionHandler) Share(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.interactionService.RecordShare(c.Context(), userID, req.TargetType, req.TargetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Share recorded"})
}

// Counts returns interaction totals for a target
// GET /api/interactions/:targetId/counts
func (h *InteractionHandler) Counts(c *fiber.Ctx) error {
	counts, err := h.interactionService.Counts(c.Context(), c.Params("targetId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}

// Bookmarks lists the caller's bookmarks
// GET /api/interactions/bookmarks
func (h *InteractionHandler) Bookmarks(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	bookmarks, err := h.interactionService.UserBookmarks(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"bookmarks": bookmarks})
}

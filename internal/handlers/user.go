package handlers

import (
	"strconv"

	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles profiles, connections, and friend suggestions
type UserHandler struct {
	userService       *services.UserService
	suggestionService *services.SuggestionService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, suggestionService *services.SuggestionService) *UserHandler {
	return &UserHandler{
		userService:       userService,
		suggestionService: suggestionService,
	}
}

// Me returns the caller's own profile
// GET /api/users/me
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	user, err := h.userService.GetByID(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	h.userService.TouchLastActive(c.Context(), userID)
	return c.JSON(user.Public())
}

// List pages through member profiles
// GET /api/users
func (h *UserHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.Query("offset", "0"), 10, 64)

	profiles, err := h.userService.ListUsers(c.Context(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": profiles})
}

// GetProfile returns another user's public profile
// GET /api/users/:id
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	user, err := h.userService.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Public())
}

// UpdateProfile applies a partial update to the caller's profile
// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var input services.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.userService.UpdateProfile(c.Context(), userID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.Public())
}

// ConnectRequest is the body for sending a connection request
type ConnectRequest struct {
	RecipientID string `json:"recipient_id"`
}

// SendConnection sends a connection request
// POST /api/connections
func (h *UserHandler) SendConnection(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	conn, err := h.userService.SendConnectionRequest(c.Context(), userID, req.RecipientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conn)
}

// RespondConnectionRequest is the body for accepting or rejecting
type RespondConnectionRequest struct {
	Status string `json:"status"`
}

// RespondConnection accepts or rejects a pending request
// POST /api/connections/:id/respond
func (h *UserHandler) RespondConnection(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req RespondConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	conn, err := h.userService.RespondConnectionRequest(c.Context(), c.Params("id"), userID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conn)
}

// PendingConnections lists requests waiting on the caller
// GET /api/connections/pending
func (h *UserHandler) PendingConnections(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	conns, err := h.userService.PendingRequests(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"requests": conns})
}

// Connections lists the caller's accepted connections
// GET /api/connections
func (h *UserHandler) Connections(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	views, err := h.userService.AcceptedConnections(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"connections": views})
}

// Suggestions returns ranked friend-of-friend candidates
// GET /api/connections/suggestions
func (h *UserHandler) Suggestions(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	candidates, err := h.suggestionService.SuggestFriends(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"suggestions": candidates})
}

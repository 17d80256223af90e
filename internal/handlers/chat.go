package handlers

import (
	"strconv"

	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler handles direct-message endpoints
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// OpenConversationRequest names the other participant
type OpenConversationRequest struct {
	UserID string `json:"user_id"`
}

// Open finds or creates a conversation with another user
// POST /api/chat/conversations
func (h *ChatHandler) Open(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req OpenConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	conversation, err := h.chatService.OpenConversation(c.Context(), userID, req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conversation)
}

// List returns the caller's conversations
// GET /api/chat/conversations
func (h *ChatHandler) List(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	conversations, err := h.chatService.ListConversations(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

// SendMessageRequest carries the plaintext message body
type SendMessageRequest struct {
	Content string `json:"content"`
}

// Send posts a message into a conversation
// POST /api/chat/conversations/:id/messages
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	message, err := h.chatService.SendMessage(c.Context(), c.Params("id"), userID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

// Messages returns decrypted messages, oldest first
// GET /api/chat/conversations/:id/messages?limit=
func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)

	messages, err := h.chatService.GetMessages(c.Context(), c.Params("id"), userID, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

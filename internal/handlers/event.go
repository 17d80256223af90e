package handlers

import (
	"strconv"

	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// EventHandler handles event lifecycle, tickets, and sponsorship requests
type EventHandler struct {
	eventService  *services.EventService
	ticketService *services.TicketService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService, ticketService *services.TicketService) *EventHandler {
	return &EventHandler{
		eventService:  eventService,
		ticketService: ticketService,
	}
}

// Create creates an event
// POST /api/events
func (h *EventHandler) Create(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var input services.CreateEventInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	event, err := h.eventService.CreateEvent(c.Context(), userID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// Get fetches one event
// GET /api/events/:id
func (h *EventHandler) Get(c *fiber.Ctx) error {
	event, err := h.eventService.GetEvent(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(event)
}

// List returns events, soonest first
// GET /api/events?upcoming=true&limit=&offset=
func (h *EventHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.Query("offset", "0"), 10, 64)
	upcoming := c.Query("upcoming") == "true"

	events, err := h.eventService.ListEvents(c.Context(), upcoming, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}

// Update edits event details
// PATCH /api/events/:id
func (h *EventHandler) Update(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var input services.UpdateEventInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	event, err := h.eventService.UpdateEvent(c.Context(), c.Params("id"), userID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(event)
}

// Delete removes an event with no sold tickets
// DELETE /api/events/:id
func (h *EventHandler) Delete(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	if err := h.eventService.DeleteEvent(c.Context(), c.Params("id"), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Event deleted"})
}

// PublishRequest is the body for flipping registration
type PublishRequest struct {
	Publish bool `json:"publish"`
}

// Publish opens or closes an event for registration
// POST /api/events/:id/publish
func (h *EventHandler) Publish(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	event, err := h.eventService.PublishEvent(c.Context(), c.Params("id"), userID, req.Publish)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(event)
}

// PurchaseRequest is the body for buying tickets
type PurchaseRequest struct {
	TicketType string `json:"ticket_type"`
	Quantity   int    `json:"quantity"`
}

// Purchase buys tickets for an event
// POST /api/events/:id/tickets
func (h *EventHandler) Purchase(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	purchase, err := h.ticketService.PurchaseTickets(c.Context(), c.Params("id"), userID, req.TicketType, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(purchase)
}

// VerifyTicket resolves an entry token at the door
// GET /api/tickets/verify/:token
func (h *EventHandler) VerifyTicket(c *fiber.Ctx) error {
	purchase, err := h.ticketService.VerifyToken(c.Context(), c.Params("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(purchase)
}

// MyTickets lists the caller's purchases
// GET /api/tickets
func (h *EventHandler) MyTickets(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	purchases, err := h.ticketService.UserPurchases(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tickets": purchases})
}

// Attendance summarizes sold tickets per type for the organizer
// GET /api/events/:id/attendance
func (h *EventHandler) Attendance(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	totals, err := h.ticketService.EventAttendance(c.Context(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"sold": totals})
}

// Purchases lists every ticket purchase for the organizer's event
// GET /api/events/:id/purchases
func (h *EventHandler) Purchases(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	purchases, err := h.ticketService.EventPurchases(c.Context(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"purchases": purchases})
}

// SponsorshipRequest is the body for requesting sponsorship
type SponsorshipRequest struct {
	Category string `json:"category"`
}

// RequestSponsorship files a sponsorship request for an event
// POST /api/events/:id/sponsorship
func (h *EventHandler) RequestSponsorship(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req SponsorshipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	request, err := h.eventService.RequestSponsorship(c.Context(), c.Params("id"), userID, req.Category)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// SponsorshipDecision is the body for approving or rejecting
type SponsorshipDecision struct {
	Status string `json:"status"`
}

// RespondSponsorship approves or rejects a pending sponsorship request
// POST /api/sponsor-requests/:id/respond
func (h *EventHandler) RespondSponsorship(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req SponsorshipDecision
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	request, err := h.eventService.RespondSponsorRequest(c.Context(), c.Params("id"), userID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(request)
}

package handlers

import (
	"gatherly/internal/models"
	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SponsorHandler handles sponsor profiles, booths, and products
type SponsorHandler struct {
	sponsorService *services.SponsorService
}

// NewSponsorHandler creates a new sponsor handler
func NewSponsorHandler(sponsorService *services.SponsorService) *SponsorHandler {
	return &SponsorHandler{sponsorService: sponsorService}
}

// CreateProfile creates the caller's sponsor profile
// POST /api/sponsors
func (h *SponsorHandler) CreateProfile(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var input services.SponsorProfileInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sponsor, err := h.sponsorService.CreateProfile(c.Context(), userID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sponsor)
}

// MyProfile returns the caller's sponsor profile
// GET /api/sponsors/me
func (h *SponsorHandler) MyProfile(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	sponsor, err := h.sponsorService.GetProfileByUser(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sponsor)
}

// AddRepresentative adds a booth representative
// POST /api/sponsors/me/representatives
func (h *SponsorHandler) AddRepresentative(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var rep models.Representative
	if err := c.BodyParser(&rep); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sponsor, err := h.sponsorService.AddRepresentative(c.Context(), userID, rep)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sponsor)
}

// BoothRequest is the body for claiming a booth
type BoothRequest struct {
	EventID       string `json:"event_id"`
	BoothNumber   string `json:"booth_number"`
	BoothLocation string `json:"booth_location"`
}

// CreateBooth claims a booth at an approved event
// POST /api/booths
func (h *SponsorHandler) CreateBooth(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req BoothRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	booth, err := h.sponsorService.CreateBooth(c.Context(), userID, req.EventID, req.BoothNumber, req.BoothLocation)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(booth)
}

// EventBooths lists the active booths at an event
// GET /api/events/:id/booths
func (h *SponsorHandler) EventBooths(c *fiber.Ctx) error {
	booths, err := h.sponsorService.EventBooths(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"booths": booths})
}

// AddProduct adds a product to one of the caller's booths
// POST /api/booths/:id/products
func (h *SponsorHandler) AddProduct(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var input services.AddProductInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	product, err := h.sponsorService.AddProduct(c.Context(), userID, c.Params("id"), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// BoothProducts lists a booth's products
// GET /api/booths/:id/products
func (h *SponsorHandler) BoothProducts(c *fiber.Ctx) error {
	products, err := h.sponsorService.BoothProducts(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"products": products})
}

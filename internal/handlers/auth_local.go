package handlers

import (
	"log"

	"gatherly/internal/models"
	"gatherly/internal/services"
	"gatherly/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// LocalAuthHandler handles registration, login, and token refresh
type LocalAuthHandler struct {
	jwtAuth     *auth.LocalJWTAuth
	userService *services.UserService
}

// NewLocalAuthHandler creates a new local auth handler
func NewLocalAuthHandler(jwtAuth *auth.LocalJWTAuth, userService *services.UserService) *LocalAuthHandler {
	return &LocalAuthHandler{
		jwtAuth:     jwtAuth,
		userService: userService,
	}
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokenRequest is the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is the response for successful authentication
type AuthResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	User         models.PublicProfile `json:"user"`
	ExpiresIn    int                  `json:"expires_in"` // seconds
}

func (h *LocalAuthHandler) authConfigured(c *fiber.Ctx) bool {
	if h.jwtAuth != nil {
		return true
	}
	c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "Authentication is not configured",
	})
	return false
}

// Register creates a new user account
// POST /api/auth/register
func (h *LocalAuthHandler) Register(c *fiber.Ctx) error {
	if !h.authConfigured(c) {
		return nil
	}

	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.userService.Register(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	accessToken, refreshToken, err := h.jwtAuth.GenerateTokens(user.ID.Hex(), user.Email, user.Role, user.RefreshTokenVersion)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
		ExpiresIn:    int(h.jwtAuth.AccessTokenExpiry.Seconds()),
	})
}

// Login authenticates a user and returns tokens
// POST /api/auth/login
func (h *LocalAuthHandler) Login(c *fiber.Ctx) error {
	if !h.authConfigured(c) {
		return nil
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.userService.GetByEmail(c.Context(), req.Email)
	if err != nil {
		// Same response for missing user and bad password.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !ok {
		if err != nil {
			log.Printf("⚠️ [AUTH] Password verification error for %s: %v", user.ID.Hex(), err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	accessToken, refreshToken, err := h.jwtAuth.GenerateTokens(user.ID.Hex(), user.Email, user.Role, user.RefreshTokenVersion)
	if err != nil {
		return respondError(c, err)
	}

	h.userService.RecordLogin(c.Context(), user.ID)

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
		ExpiresIn:    int(h.jwtAuth.AccessTokenExpiry.Seconds()),
	})
}

// Refresh exchanges a valid refresh token for a new token pair
// POST /api/auth/refresh
func (h *LocalAuthHandler) Refresh(c *fiber.Ctx) error {
	if !h.authConfigured(c) {
		return nil
	}

	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "refresh_token is required",
		})
	}

	claims, err := h.jwtAuth.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}

	// Re-read the user so revoked accounts stop refreshing.
	user, err := h.userService.GetByID(c.Context(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Account no longer exists",
		})
	}
	if claims.TokenVersion != user.RefreshTokenVersion {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Refresh token has been revoked",
		})
	}

	accessToken, refreshToken, err := h.jwtAuth.GenerateTokens(user.ID.Hex(), user.Email, user.Role, user.RefreshTokenVersion)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
		ExpiresIn:    int(h.jwtAuth.AccessTokenExpiry.Seconds()),
	})
}

// Logout invalidates outstanding refresh tokens for the caller
// POST /api/auth/logout
func (h *LocalAuthHandler) Logout(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	user, err := h.userService.GetByID(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.userService.BumpTokenVersion(c.Context(), user.ID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

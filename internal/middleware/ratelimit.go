package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gopkg.in/yaml.v3"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Public read-only endpoint limits (per IP)
	PublicReadMax        int
	PublicReadExpiration time.Duration

	// Authenticated endpoint limits (per user ID)
	AuthenticatedMax        int
	AuthenticatedExpiration time.Duration

	// Assistant query limits (LLM-backed, expensive)
	AssistantMax        int
	AssistantExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 200/min = ~3.3 req/sec - very generous for normal use
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		// Public read endpoints: 120/min = 2 req/sec
		PublicReadMax:        120,
		PublicReadExpiration: 1 * time.Minute,

		// Authenticated operations: 60/min = 1 req/sec average
		AuthenticatedMax:        60,
		AuthenticatedExpiration: 1 * time.Minute,

		// Assistant queries: 15/min (each may fan out to several LLM calls)
		AssistantMax:        15,
		AssistantExpiration: 1 * time.Minute,
	}
}

// rateLimitFile mirrors RateLimitConfig for the optional YAML override
// file. Zero values mean "keep the default".
type rateLimitFile struct {
	GlobalMax     int `yaml:"global_max"`
	PublicReadMax int `yaml:"public_read_max"`
	AuthMax       int `yaml:"auth_max"`
	AssistantMax  int `yaml:"assistant_max"`
}

// LoadRateLimitConfig loads config from an optional YAML file
// (RATE_LIMIT_FILE) and environment variables, env winning over file.
func LoadRateLimitConfig() *RateLimitConfig {
	cfg := DefaultRateLimitConfig()

	if path := os.Getenv("RATE_LIMIT_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("⚠️  [RATE-LIMIT] Cannot read %s: %v", path, err)
		} else {
			var file rateLimitFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				log.Printf("⚠️  [RATE-LIMIT] Invalid YAML in %s: %v", path, err)
			} else {
				if file.GlobalMax > 0 {
					cfg.GlobalAPIMax = file.GlobalMax
				}
				if file.PublicReadMax > 0 {
					cfg.PublicReadMax = file.PublicReadMax
				}
				if file.AuthMax > 0 {
					cfg.AuthenticatedMax = file.AuthMax
				}
				if file.AssistantMax > 0 {
					cfg.AssistantMax = file.AssistantMax
				}
			}
		}
	}

	if v := os.Getenv("RATE_LIMIT_GLOBAL_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.GlobalAPIMax = parsed
		}
	}
	if v := os.Getenv("RATE_LIMIT_PUBLIC_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.PublicReadMax = parsed
		}
	}
	if v := os.Getenv("RATE_LIMIT_AUTH_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.AuthenticatedMax = parsed
		}
	}
	if v := os.Getenv("RATE_LIMIT_ASSISTANT_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.AssistantMax = parsed
		}
	}

	return cfg
}

// GlobalAPIRateLimiter is the first line of defense applied to all /api routes
func GlobalAPIRateLimiter(cfg *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.GlobalAPIMax,
		Expiration: cfg.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down.",
			})
		},
	})
}

// PublicReadRateLimiter limits unauthenticated read endpoints per IP
func PublicReadRateLimiter(cfg *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.PublicReadMax,
		Expiration: cfg.PublicReadExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "public:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down.",
			})
		},
	})
}

// AssistantRateLimiter limits LLM-backed assistant queries per user
func AssistantRateLimiter(cfg *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.AssistantMax,
		Expiration: cfg.AssistantExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			userID, ok := c.Locals("user_id").(string)
			if !ok || userID == "" {
				return c.IP()
			}
			return "assistant:" + userID
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Assistant limit reached for user: %v", c.Locals("user_id"))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many assistant queries. Please wait before asking again.",
			})
		},
	})
}

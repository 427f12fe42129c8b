package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminTokenMiddleware guards catalog writes with a static bearer token.
// An empty token disables the admin routes entirely.
func AdminTokenMiddleware(token string) fiber.Handler {
	token = strings.TrimSpace(token)
	return func(c *fiber.Ctx) error {
		if token == "" {
			log.Print("admin token middleware: PRICING_ADMIN_TOKEN not set, rejecting request")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "Admin API disabled"})
		}
		presented := extractTokenFromHeader(c)
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing admin token"})
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Invalid admin token"})
		}
		return c.Next()
	}
}

func extractTokenFromHeader(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get("X-Admin-Token")); key != "" {
		return key
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

package middleware

import (
	"log"
	"strings"

	"gtdsync/internal/models"
	"gtdsync/internal/services"

	"github.com/gofiber/fiber/v2"
)

// IdentityKey is the Locals key holding the authenticated models.Identity.
const IdentityKey = "identity"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// A missing or malformed credential is 401; a token that fails verification is 403.
// The token may also arrive as the "token" query parameter, which browsers
// need for WebSocket upgrades.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Query("token")

		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if !(len(parts) == 2 && parts[0] == "Bearer" && strings.TrimSpace(parts[1]) != "") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Authorization header format must be 'Bearer <token>'",
				})
			}
			tokenString = strings.TrimSpace(parts[1])
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		identity, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(IdentityKey, *identity)
		return c.Next()
	}
}

// Identity returns the caller stored by AuthRequired.
func Identity(c *fiber.Ctx) (models.Identity, bool) {
	id, ok := c.Locals(IdentityKey).(models.Identity)
	return id, ok
}

package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/account-service/internal/utils"
)

// RequireAuth validates the session token from the Authorization header or
// the token cookie and stores the claims in c.Locals("claims").
func RequireAuth(jwt *utils.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		if h := c.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
		if token == "" {
			token = c.Cookies("token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
		}

		claims, err := jwt.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		c.Locals("claims", claims)
		return c.Next()
	}
}

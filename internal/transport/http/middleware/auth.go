package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/taskextreme/backend/internal/config"
	"github.com/taskextreme/backend/internal/transport/http/dto"
)

// APIKey guards the API when auth.api_key is set. The key is read from
// X-API-Key or a Bearer token; websocket clients may pass ?api_key=.
func APIKey(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := cfg.Auth.APIKey
		if apiKey == "" {
			return c.Next()
		}

		token := c.Get("X-API-Key")
		if token == "" {
			auth := c.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
				token = auth[len(prefix):]
			}
		}
		if token == "" {
			token = c.Query("api_key")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "unauthorized",
			})
		}

		return c.Next()
	}
}

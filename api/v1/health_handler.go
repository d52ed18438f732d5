package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/benvinegar/counterscale-sub000/internal/config"
)

// HealthHandler reports process liveness and whether the analytics store is
// configured. It never calls the store; health must stay cheap.
func HealthHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":          "ok",
			"environment":     cfg.Environment,
			"storeConfigured": cfg.StoreQueryURL != "" && cfg.StoreWriteURL != "",
		})
	}
}

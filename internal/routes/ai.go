package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/analytics"
)

// RegisterAnalyticsRoutes wires the conversational assistant endpoints.
func RegisterAnalyticsRoutes(r fiber.Router, h *analytics.Handler) {
	group := r.Group("/ai")
	group.Post("/chat", h.Chat)
	group.Get("/export", h.Export)
}

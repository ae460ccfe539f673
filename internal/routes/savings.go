package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/savings"
)

// RegisterSavingsRoutes wires fixed-term savings endpoints.
func RegisterSavingsRoutes(r fiber.Router, h *savings.Handler, idem fiber.Handler) {
	group := r.Group("/savings")
	group.Get("", h.List)
	group.Get("/durations", h.Durations)
	group.Post("", guarded(idem, h.Create)...)
	group.Post("/:lockId/break", guarded(idem, h.Break)...)
}

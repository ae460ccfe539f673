package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/funding"
)

// RegisterFundingRoutes wires deposit initialization. The simulator only
// exists in development.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, idem fiber.Handler, dev bool) {
	group := r.Group("/deposits")
	group.Post("", guarded(idem, h.Initialize)...)
	if dev {
		group.Post("/simulate", guarded(idem, h.Simulate)...)
	}
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/payout"
)

// RegisterPayoutRoutes wires withdrawals and settlement bank management.
func RegisterPayoutRoutes(r fiber.Router, h *payout.Handler, idem fiber.Handler) {
	r.Get("/banks", h.Banks)
	r.Post("/banks", h.SaveBank)
	r.Post("/withdrawals", guarded(idem, h.Withdraw)...)
}

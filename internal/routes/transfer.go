package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/transfer"
)

// RegisterTransferRoutes wires wallet-to-wallet transfers. Direct send and
// confirm move money, so they take the idempotency guard; chat and cancel
// only touch the pending record.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, idem fiber.Handler) {
	group := r.Group("/transfers")
	group.Post("", guarded(idem, h.Send)...)
	group.Post("/chat", h.Chat)
	group.Post("/confirm", guarded(idem, h.Confirm)...)
	group.Post("/cancel", h.Cancel)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/webhook"
)

// RegisterWebhookRoutes wires the processor settlement webhook.
func RegisterWebhookRoutes(r fiber.Router, h *webhook.Handler) {
	r.Post("/webhooks/paystack", h.Receive)
}

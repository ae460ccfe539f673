package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/processor"
)

// Handler exposes deposit HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a funding HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

// Initialize opens a checkout session for the authenticated user.
func (h *Handler) Initialize(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	session, err := h.service.Initialize(c.UserContext(), uid, req.Amount)
	if err != nil {
		return fundingError(err)
	}
	return c.Status(http.StatusOK).JSON(session)
}

// Simulate settles a deposit immediately. Registered only in development.
func (h *Handler) Simulate(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Simulate(c.UserContext(), uid, req.Amount)
	if err != nil {
		return fundingError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"reference": result.Reference,
		"balance":   result.Balance,
	})
}

func fundingError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, processor.ErrRejected):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, processor.ErrUnavailable):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

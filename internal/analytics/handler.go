package analytics

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/transfer"
)

// Handler exposes the chat and export HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an analytics HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat handles one conversational message for the authenticated user.
func (h *Handler) Chat(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Message == "" {
		return fiber.NewError(http.StatusBadRequest, "message is required")
	}

	reply, err := h.service.Chat(c.UserContext(), uid, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrRecipientNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, transfer.ErrSelfTransfer), errors.Is(err, transfer.ErrInvalidAmount),
			errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUnavailable):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(reply)
}

// Export returns the raw context block, mostly for debugging.
func (h *Handler) Export(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	export, err := h.service.Export(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"export": export})
}

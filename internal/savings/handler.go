package savings

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
)

// Handler exposes savings HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a savings HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Amount   int64  `json:"amount"`
	Duration string `json:"duration"`
	PIN      string `json:"pin"`
}

type breakRequest struct {
	PIN string `json:"pin"`
}

// Create locks funds for a fixed term.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	lock, err := h.service.Create(c.UserContext(), uid, req.PIN, req.Amount, req.Duration)
	if err != nil {
		return savingsError(err)
	}
	return c.Status(http.StatusCreated).JSON(lock)
}

// Break ends a lock early for the 2% penalty.
func (h *Handler) Break(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req breakRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Break(c.UserContext(), uid, req.PIN, c.Params("lockId"))
	if err != nil {
		return savingsError(err)
	}
	return c.Status(http.StatusOK).JSON(result)
}

// List returns the user's savings locks.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	locks, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"savings": locks})
}

// Durations returns the accepted lock terms.
func (h *Handler) Durations(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"durations": Durations})
}

func savingsError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidDuration):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrInvalidPIN), errors.Is(err, identity.ErrPINNotSet):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrSavingsNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrSavingsNotActive):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrWalletLocked):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

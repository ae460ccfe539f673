package payout

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/processor"
)

// Handler exposes withdrawal and bank-detail HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a payout HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawRequest struct {
	Amount int64  `json:"amount"`
	PIN    string `json:"pin"`
}

type saveBankRequest struct {
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
}

// Withdraw sends funds to the user's saved bank account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Withdraw(c.UserContext(), uid, req.PIN, req.Amount)
	if err != nil {
		return payoutError(err)
	}
	return c.Status(http.StatusOK).JSON(result)
}

// Banks lists the supported banks.
func (h *Handler) Banks(c *fiber.Ctx) error {
	banks, err := h.service.Banks(c.UserContext())
	if err != nil {
		return payoutError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"banks": banks})
}

// SaveBank verifies and stores the user's settlement account.
func (h *Handler) SaveBank(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req saveBankRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.BankCode == "" || req.AccountNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "bank_code and account_number are required")
	}

	detail, err := h.service.SaveBank(c.UserContext(), uid, req.BankName, req.BankCode, req.AccountNumber)
	if err != nil {
		return payoutError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"bank_name":      detail.BankName,
		"bank_code":      detail.BankCode,
		"account_name":   detail.AccountName,
		"account_number": detail.AccountNumber,
	})
}

func payoutError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNoBankDetails):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrInvalidPIN), errors.Is(err, identity.ErrPINNotSet):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrWalletLocked):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, processor.ErrRejected):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, processor.ErrUnavailable):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	case errors.Is(err, ErrReconciliationRequired):
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

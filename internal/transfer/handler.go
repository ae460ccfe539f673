package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/money"
)

// Handler exposes transfer HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a transfer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	PIN       string `json:"pin"`
	Remark    string `json:"remark"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type confirmRequest struct {
	PIN string `json:"pin"`
}

// Send executes a direct transfer for the authenticated user.
func (h *Handler) Send(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Execute(c.UserContext(), Input{
		SenderID:  uid,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		PIN:       req.PIN,
		Remark:    req.Remark,
	})
	if err != nil {
		return transferError(err)
	}
	return c.Status(http.StatusOK).JSON(result)
}

// Chat parses a free-text transfer instruction and parks it pending PIN
// confirmation.
func (h *Handler) Chat(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	intent, err := ParseIntent(req.Message)
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}

	p, err := h.service.Propose(c.UserContext(), uid, intent.Recipient, intent.Amount)
	if err != nil {
		return transferError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": "confirmation_required",
		"prompt": "You are about to send " + money.FormatNaira(p.Amount) + " to " +
			p.RecipientName + ". Enter your transaction PIN to confirm.",
		"amount":     p.Amount,
		"recipient":  p.RecipientName,
		"expires_at": p.ExpiresAt,
	})
}

// Confirm completes the pending transfer with the transaction PIN.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Confirm(c.UserContext(), uid, req.PIN)
	if err != nil {
		return transferError(err)
	}
	return c.Status(http.StatusOK).JSON(result)
}

// Cancel withdraws the pending transfer, if any.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.service.Cancel(c.UserContext(), uid); err != nil {
		return transferError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "cancelled"})
}

func transferError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrInvalidPIN), errors.Is(err, identity.ErrPINNotSet):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrRecipientNotFound), errors.Is(err, ErrNoPendingTransfer):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConfirmationExpired):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, ledger.ErrWalletLocked):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

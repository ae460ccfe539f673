package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/money"
	"github.com/ile-bank/ile_bank/internal/notification"
)

// SignatureHeader carries the processor's HMAC of the request body.
const SignatureHeader = "x-paystack-signature"

// Handler settles processor webhook events into the ledger.
type Handler struct {
	secret   []byte
	ledger   ledger.Ledger
	dispatch *notification.Dispatcher
	logger   *slog.Logger
}

// NewHandler builds a webhook handler. secret is the shared processor key.
func NewHandler(secret string, l ledger.Ledger, dispatch *notification.Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{secret: []byte(secret), ledger: l, dispatch: dispatch, logger: logger}
}

// Receive verifies, parses and settles one webhook delivery. An unverifiable
// signature is a hard 400; a duplicate reference acknowledges with 200 so the
// processor stops redelivering; internal failures return 5xx to request a
// retry.
func (h *Handler) Receive(c *fiber.Ctx) error {
	body := c.Body()

	if err := VerifySignature(h.secret, body, c.Get(SignatureHeader)); err != nil {
		h.logger.Warn("webhook rejected", "error", err)
		return fiber.NewError(http.StatusBadRequest, "invalid signature")
	}

	event, err := ParseEvent(body)
	if err != nil {
		h.logger.Warn("webhook unparseable", "error", err)
		return fiber.NewError(http.StatusBadRequest, "malformed event")
	}

	if event.Kind != EventChargeSuccess {
		h.logger.Info("webhook ignored", "kind", event.Kind)
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ignored"})
	}

	if err := h.settle(c.UserContext(), event); err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			h.logger.Info("webhook duplicate", "reference", event.Reference)
			return c.Status(http.StatusOK).JSON(fiber.Map{"status": "already_processed"})
		}
		h.logger.Error("webhook settlement failed", "reference", event.Reference, "error", err)
		return fiber.NewError(http.StatusInternalServerError, "settlement failed")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "processed"})
}

func (h *Handler) settle(ctx context.Context, event Event) error {
	result, err := h.ledger.Credit(ctx, ledger.CreditArgs{
		WalletID:  event.WalletID,
		UserID:    event.UserID,
		Amount:    event.Amount,
		Source:    ledger.SourceDeposit,
		Reference: event.Reference,
		Detail:    "Wallet deposit",
	})
	if err != nil {
		return err
	}

	h.logger.Info("deposit settled",
		"reference", result.Reference,
		"wallet_id", event.WalletID,
		"amount", event.Amount,
	)
	h.dispatch.Dispatch(ctx, notification.Message{
		RecipientID:     event.UserID,
		Title:           "Deposit successful",
		Message:         fmt.Sprintf("Your wallet was funded with %s.", money.FormatNaira(event.Amount)),
		ActionKind:      notification.ActionDeposit,
		TargetReference: result.Reference,
	})
	return nil
}

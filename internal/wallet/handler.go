package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type entryResponse struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Direction string `json:"direction"`
	Status    string `json:"status"`
	Source    string `json:"source"`
	Reference string `json:"reference"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at"`
}

func toEntryResponses(entries []ledger.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:        e.ID,
			Amount:    e.Amount,
			Direction: string(e.Direction),
			Status:    string(e.Status),
			Source:    string(e.Source),
			Reference: e.Reference,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// Overview returns the authenticated user's wallet snapshot.
func (h *Handler) Overview(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	overview, err := h.service.Overview(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	}
	return c.Status(http.StatusOK).JSON(overview)
}

// History lists the authenticated user's transactions, optionally filtered
// by source (?source=transfer&limit=50).
func (h *Handler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	q := ledger.HistoryQuery{Source: ledger.Source(c.Query("source"))}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fiber.NewError(http.StatusBadRequest, "limit must be a positive integer")
		}
		q.Limit = n
	}

	entries, err := h.service.History(c.UserContext(), uid, q)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"count":        len(entries),
		"transactions": toEntryResponses(entries),
	})
}

// Receipt returns both entries of a financial event by its reference.
func (h *Handler) Receipt(c *fiber.Ctx) error {
	reference := c.Params("reference")
	entries, err := h.service.Receipt(c.UserContext(), reference)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) || len(entries) == 0 {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if len(entries) == 0 {
		return fiber.NewError(http.StatusNotFound, "transaction not found")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"reference": reference,
		"entries":   toEntryResponses(entries),
	})
}

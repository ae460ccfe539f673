package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/identity"
)

// RegisterProfileRoutes exposes the profile and transaction-PIN lifecycle.
// Small enough to use the identity service directly instead of a handler.
func RegisterProfileRoutes(r fiber.Router, ids *identity.Service) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := ids.Get(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		resp := fiber.Map{
			"user_id":        user.ID,
			"name":           user.Name,
			"email":          user.Email,
			"username":       user.Username,
			"account_number": user.AccountNumber,
			"wallet_id":      user.WalletID,
			"has_pin":        user.HasPIN(),
			"has_bank":       user.HasBank(),
			"created_at":     user.CreatedAt,
		}
		if user.HasBank() {
			resp["bank"] = fiber.Map{
				"bank_name":      user.Bank.BankName,
				"account_name":   user.Bank.AccountName,
				"account_number": user.Bank.AccountNumber,
			}
		}
		return c.JSON(resp)
	})

	pin := r.Group("/pin")
	pin.Post("", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		var req struct {
			CurrentPIN string `json:"current_pin"`
			NewPIN     string `json:"new_pin"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := ids.SetPIN(c.UserContext(), uid, req.CurrentPIN, req.NewPIN); err != nil {
			if errors.Is(err, identity.ErrInvalidPIN) {
				return fiber.NewError(http.StatusForbidden, err.Error())
			}
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "pin_set"})
	})
	pin.Post("/confirm", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		var req struct {
			PIN string `json:"pin"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := ids.VerifyPIN(c.UserContext(), uid, req.PIN); err != nil {
			switch {
			case errors.Is(err, identity.ErrPINNotSet):
				return fiber.NewError(http.StatusBadRequest, err.Error())
			case errors.Is(err, identity.ErrInvalidPIN):
				return fiber.NewError(http.StatusForbidden, err.Error())
			default:
				return fiber.NewError(http.StatusInternalServerError, err.Error())
			}
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "pin_valid"})
	})
}

package routes

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ile-bank/ile_bank/internal/notification"
)

// RegisterNotificationRoutes exposes the in-app inbox.
func RegisterNotificationRoutes(r fiber.Router, inbox notification.Repository) {
	group := r.Group("/notifications")
	group.Get("", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		stored, err := inbox.Recent(c.UserContext(), uid, limit)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"notifications": stored})
	})
	group.Post("/:id/viewed", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		if err := inbox.MarkViewed(c.UserContext(), uid, c.Params("id")); err != nil {
			return fiber.NewError(http.StatusNotFound, "notification not found")
		}
		return c.SendStatus(http.StatusNoContent)
	})
}

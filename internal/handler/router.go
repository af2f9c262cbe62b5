package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"gymclass/internal/handler/dto"
)

// Register mounts all routes on the Fiber app. ping is probed by /healthz;
// nil means the process alone signals health.
func (h *Handler) Register(app *fiber.App, ping func(c *fiber.Ctx) error) {
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if ping != nil {
			if err := ping(c); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	api.Post("/classes", h.CreateClass)
	api.Get("/classes", h.ListClasses)
	api.Get("/classes/:id", h.GetClass)
	api.Patch("/classes/:id", h.UpdateClass)
	api.Delete("/classes/:id", h.DeactivateClass)

	api.Post("/bookings", h.BookClass)
	api.Delete("/bookings/:id", h.CancelBooking)

	api.Get("/members/:id/bookings", h.ListMemberBookings)
}

// ErrorHandler renders fiber errors as the common JSON error shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
}

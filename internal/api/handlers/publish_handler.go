package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/relaypost/relaypost/internal/service"
)

type PublishHandler struct {
	s service.PublishService
}

func NewPublishHandler(s service.PublishService) *PublishHandler {
	return &PublishHandler{s: s}
}

// PublishNow triggers the same dispatch-and-aggregate path the scheduler
// loop uses, synchronously.
func (h *PublishHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)
	if postID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post id is required",
		})
	}

	status, results, err := h.s.PublishNow(c.Context(), userID, int64(postID))
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  status,
		"results": results,
	})
}

func (h *PublishHandler) ListResults(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)
	if postID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "post id is required",
		})
	}

	results, err := h.s.ListResults(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list publish results",
		})
	}

	return c.Status(fiber.StatusOK).JSON(results)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/relaypost/relaypost/internal/service"
)

type MediaHandler struct {
	retention *service.RetentionService
}

func NewMediaHandler(retention *service.RetentionService) *MediaHandler {
	return &MediaHandler{retention: retention}
}

func (h *MediaHandler) SweepOrphans(c *fiber.Ctx) error {
	deleted, err := h.retention.SweepOrphans(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted": deleted,
	})
}

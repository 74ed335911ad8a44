package handlers

import (
	"github.com/gofiber/fiber/v2"
	job "github.com/relaypost/relaypost/internal/jobs"
	"github.com/relaypost/relaypost/internal/service"
)

type ChannelHandler struct {
	s       service.ChannelService
	refresh *job.TokenRefreshJob
}

func NewChannelHandler(s service.ChannelService, refresh *job.TokenRefreshJob) *ChannelHandler {
	return &ChannelHandler{s: s, refresh: refresh}
}

func (h *ChannelHandler) ListChannels(c *fiber.Ctx) error {
	userID := GetUserID(c)

	channels, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list channels",
		})
	}

	return c.Status(fiber.StatusOK).JSON(channels)
}

// RefreshAll renews every credential the caller has, including expired
// ones the hourly tick no longer touches.
func (h *ChannelHandler) RefreshAll(c *fiber.Ctx) error {
	userID := GetUserID(c)

	refreshed, err := h.refresh.RefreshAll(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to refresh credentials",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"refreshed": refreshed,
	})
}

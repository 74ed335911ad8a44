package service

import (
	"context"
	"fmt"

	"github.com/relaypost/relaypost/internal/models"
	"github.com/relaypost/relaypost/internal/repository"
)

type ChannelService interface {
	List(ctx context.Context, userID int64) ([]*models.Channel, error)
}

type channelService struct {
	cr repository.ChannelRepository
}

func NewChannelService(cr repository.ChannelRepository) ChannelService {
	return &channelService{cr: cr}
}

// List returns the user's active channels with credentials blanked out.
func (s *channelService) List(ctx context.Context, userID int64) ([]*models.Channel, error) {
	channels, err := s.cr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing channels: %w", err)
	}
	for _, ch := range channels {
		ch.AccessCredential = ""
		ch.RefreshCredential = ""
	}
	return channels, nil
}

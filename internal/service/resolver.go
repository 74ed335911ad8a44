package service

import (
	"context"
	"log/slog"

	"github.com/relaypost/relaypost/internal/models"
	"github.com/relaypost/relaypost/internal/repository"
)

// ChannelResolver computes the target channels for a post. Explicit
// selections win; with none, each listed platform falls back to the
// user's first active channel for it. Multiple channels on the same
// platform are only reachable through explicit selection.
type ChannelResolver struct {
	cr repository.ChannelRepository
}

func NewChannelResolver(cr repository.ChannelRepository) *ChannelResolver {
	return &ChannelResolver{cr: cr}
}

func (r *ChannelResolver) Resolve(ctx context.Context, post *models.Post) ([]*models.Channel, error) {
	if len(post.SelectedChannelIDs) > 0 {
		channels, err := r.cr.ListActiveByIDs(ctx, post.UserID, post.SelectedChannelIDs)
		if err != nil {
			return nil, err
		}
		if len(channels) < len(post.SelectedChannelIDs) {
			slog.Info("some selected channels did not resolve",
				"post_id", post.ID, "selected", len(post.SelectedChannelIDs), "resolved", len(channels))
		}
		return channels, nil
	}

	var channels []*models.Channel
	for _, platform := range post.Platforms {
		ch, err := r.cr.FirstActiveByPlatform(ctx, post.UserID, platform)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			slog.Info("no active channel for platform", "post_id", post.ID, "platform", platform)
			continue
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

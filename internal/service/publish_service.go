package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaypost/relaypost/internal/adapters"
	"github.com/relaypost/relaypost/internal/models"
	"github.com/relaypost/relaypost/internal/repository"
	"github.com/relaypost/relaypost/pkg/vault"
)

// CleanupScheduler defers a media cleanup for a post that reached the
// published state.
type CleanupScheduler interface {
	Schedule(postID int64) error
}

type PublishService interface {
	// Dispatch runs the full dispatch-and-aggregate cycle for an
	// already-claimed post and returns the resulting status.
	Dispatch(ctx context.Context, post *models.Post) (string, []*models.PublishResult, error)
	// PublishNow is the on-demand path: claim the post, then dispatch.
	PublishNow(ctx context.Context, userID, postID int64) (string, []*models.PublishResult, error)
	ListResults(ctx context.Context, userID, postID int64) ([]*models.PublishResult, error)
}

type publishService struct {
	pr       repository.PostRepository
	results  repository.PublishResultRepository
	ma       repository.MediaAssetRepository
	resolver *ChannelResolver
	registry *adapters.Registry
	vault    *vault.Vault
	cleanup  CleanupScheduler
	now      func() time.Time
}

func NewPublishService(
	pr repository.PostRepository,
	results repository.PublishResultRepository,
	ma repository.MediaAssetRepository,
	resolver *ChannelResolver,
	registry *adapters.Registry,
	v *vault.Vault,
	cleanup CleanupScheduler) PublishService {
	return &publishService{
		pr:       pr,
		results:  results,
		ma:       ma,
		resolver: resolver,
		registry: registry,
		vault:    v,
		cleanup:  cleanup,
		now:      time.Now,
	}
}

func (s *publishService) Dispatch(ctx context.Context, post *models.Post) (string, []*models.PublishResult, error) {
	channels, err := s.resolver.Resolve(ctx, post)
	if err != nil {
		return "", nil, fmt.Errorf("error resolving channels: %w", err)
	}

	if len(channels) == 0 {
		slog.Info("no channels resolved, marking post failed", "post_id", post.ID)
		if err := s.pr.UpdateStatus(ctx, models.PostStatusFailed, post.ID); err != nil {
			return "", nil, err
		}
		return models.PostStatusFailed, nil, nil
	}

	media, err := s.ma.ListByPostID(ctx, post.ID)
	if err != nil {
		return "", nil, fmt.Errorf("error loading post media: %w", err)
	}

	// Channels are dispatched one at a time: per-user request rate
	// stays bounded and the result ordering is deterministic.
	results := make([]*models.PublishResult, 0, len(channels))
	for _, channel := range channels {
		result := s.dispatchChannel(ctx, post, channel, media)
		if _, err := s.results.Create(ctx, result); err != nil {
			return "", nil, fmt.Errorf("error saving publish result: %w", err)
		}
		results = append(results, result)
	}

	status := AggregateStatus(results)
	if err := s.pr.UpdateStatus(ctx, status, post.ID); err != nil {
		return "", nil, err
	}

	if status == models.PostStatusPublished && s.cleanup != nil {
		if err := s.cleanup.Schedule(post.ID); err != nil {
			slog.Error("error scheduling media cleanup", "post_id", post.ID, "error", err.Error())
		}
	}

	return status, results, nil
}

// dispatchChannel never returns an error: every failure mode is folded
// into a failed PublishResult so one channel cannot abort the rest.
func (s *publishService) dispatchChannel(ctx context.Context, post *models.Post, channel *models.Channel, media []*models.MediaAsset) *models.PublishResult {
	result := &models.PublishResult{
		PostID:    post.ID,
		ChannelID: channel.ID,
		Platform:  channel.Platform,
	}

	adapter, ok := s.registry.Operation(channel.Platform, post.PostType)
	if !ok {
		fail(result, adapters.NewPreconditionError("platform %q does not support post type %q", channel.Platform, post.PostType))
		return result
	}

	if err := validatePreconditions(post.PostType, media); err != nil {
		fail(result, err)
		return result
	}

	accessCredential, err := s.vault.Decrypt(channel.AccessCredential)
	if err != nil {
		fail(result, fmt.Errorf("error decrypting credential: %w", err))
		return result
	}

	outcome, err := adapter.Publish(ctx, &adapters.PublishRequest{
		Post:             post,
		Media:            media,
		AccessCredential: accessCredential,
		ChannelMetadata:  channel.Metadata,
	})
	if err != nil {
		slog.Info("publish attempt failed",
			"post_id", post.ID, "channel_id", channel.ID, "platform", channel.Platform, "error", err.Error())
		fail(result, err)
		return result
	}

	result.Status = models.ResultStatusSuccess
	result.ExternalID = outcome.ExternalID
	result.PublishedAt = s.now()
	return result
}

func fail(result *models.PublishResult, err error) {
	result.Status = models.ResultStatusFailed
	result.ErrorMessage = err.Error()
}

func (s *publishService) PublishNow(ctx context.Context, userID, postID int64) (string, []*models.PublishResult, error) {
	owned, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return "", nil, err
	}
	if !owned {
		return "", nil, errors.New("post doesn't exist")
	}

	claimed, err := s.pr.Claim(ctx, postID, s.now())
	if err != nil {
		return "", nil, err
	}
	if !claimed {
		return "", nil, errors.New("post is already published or in flight")
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return "", nil, err
	}
	if post == nil {
		return "", nil, errors.New("post doesn't exist")
	}

	return s.Dispatch(ctx, post)
}

func (s *publishService) ListResults(ctx context.Context, userID, postID int64) ([]*models.PublishResult, error) {
	owned, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, errors.New("post doesn't exist")
	}
	return s.results.ListByPostID(ctx, postID)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaypost/relaypost/internal/models"
	"github.com/relaypost/relaypost/internal/repository"
)

// RetentionService removes a post's media once every publish attempt
// succeeded, and sweeps storage objects no catalog row references.
type RetentionService struct {
	pr      repository.PostRepository
	results repository.PublishResultRepository
	ma      repository.MediaAssetRepository
	storage MediaStorage
	now     func() time.Time
}

func NewRetentionService(
	pr repository.PostRepository,
	results repository.PublishResultRepository,
	ma repository.MediaAssetRepository,
	storage MediaStorage) *RetentionService {
	return &RetentionService{
		pr:      pr,
		results: results,
		ma:      ma,
		storage: storage,
		now:     time.Now,
	}
}

// CleanupPost deletes the post's media files and catalog rows, but only
// when every recorded result is a success. Any failed result keeps the
// media around for manual retry or inspection; there is no partial
// cleanup. Errors are returned so the task queue retries the job.
func (s *RetentionService) CleanupPost(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info("cleanup skipped, post no longer exists", "post_id", postID)
		return nil
	}
	if post.Metadata[models.MetadataCleanupKey] != "" {
		return nil
	}

	results, err := s.results.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		slog.Info("cleanup skipped, post has no publish results", "post_id", postID)
		return nil
	}
	for _, result := range results {
		if result.Status == models.ResultStatusFailed {
			slog.Info("cleanup skipped, post has failed publish results", "post_id", postID)
			return nil
		}
	}

	assets, err := s.ma.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	for _, asset := range assets {
		if err := s.storage.Delete(ctx, asset.FileName); err != nil {
			return fmt.Errorf("error deleting media file %s: %w", asset.FileName, err)
		}
		if err := s.ma.Remove(ctx, asset.ID); err != nil {
			return fmt.Errorf("error removing catalog row %d: %w", asset.ID, err)
		}
	}

	if err := s.pr.StampCleanup(ctx, postID, s.now()); err != nil {
		return err
	}

	slog.Info("media cleanup complete", "post_id", postID, "files_deleted", len(assets))
	return nil
}

// SweepOrphans deletes storage objects that no catalog row references.
// Catalog-referenced files are never touched regardless of the owning
// post's status.
func (s *RetentionService) SweepOrphans(ctx context.Context) (int, error) {
	keys, err := s.storage.ListKeys(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		exists, err := s.ma.ExistsByFileName(ctx, key)
		if err != nil {
			return deleted, err
		}
		if exists {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("error deleting orphan %s: %w", key, err)
		}
		deleted++
	}

	slog.Info("orphan sweep complete", "scanned", len(keys), "deleted", deleted)
	return deleted, nil
}

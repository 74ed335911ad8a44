package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/relaypost/relaypost/internal/models"
)

type PublishResultRepository interface {
	Create(ctx context.Context, result *models.PublishResult) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishResult, error)
}

type publishResultRepository struct {
	db *sql.DB
}

func NewPublishResultRepository(db *sql.DB) PublishResultRepository {
	return &publishResultRepository{db: db}
}

func (r *publishResultRepository) Create(ctx context.Context, result *models.PublishResult) (int64, error) {
	query := `
		INSERT INTO publish_results (post_id, channel_id, platform, status, external_id, error_message, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		result.PostID,
		result.ChannelID,
		result.Platform,
		result.Status,
		result.ExternalID,
		result.ErrorMessage,
		result.PublishedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishResultRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishResult, error) {
	query := `
		SELECT id, post_id, channel_id, platform, status, external_id, error_message, published_at, created_at
		FROM publish_results
		WHERE post_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var results []*models.PublishResult
	for rows.Next() {
		var pr models.PublishResult
		err := rows.Scan(&pr.ID, &pr.PostID, &pr.ChannelID, &pr.Platform, &pr.Status,
			&pr.ExternalID, &pr.ErrorMessage, &pr.PublishedAt, &pr.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		results = append(results, &pr)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return results, nil
}

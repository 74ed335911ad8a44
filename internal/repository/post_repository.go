package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/relaypost/relaypost/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	Claim(ctx context.Context, id int64, now time.Time) (bool, error)
	UpdateStatus(ctx context.Context, status string, postID int64) error
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	StampCleanup(ctx context.Context, postID int64, cleanedAt time.Time) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, post_type, content, title, platforms, selected_channel_ids, status, scheduled_at, claimed_at, metadata, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	var platforms pq.StringArray
	var selected pq.Int64Array
	var scheduledAt, claimedAt sql.NullTime
	var metadata []byte

	err := row.Scan(&post.ID, &post.UserID, &post.PostType, &post.Content, &post.Title,
		&platforms, &selected, &post.Status, &scheduledAt, &claimedAt, &metadata,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Platforms = platforms
	post.SelectedChannelIDs = selected
	if scheduledAt.Valid {
		post.ScheduledAt = &scheduledAt.Time
	}
	if claimedAt.Valid {
		post.ClaimedAt = &claimedAt.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &post.Metadata); err != nil {
			slog.Info(err.Error())
		}
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

// ClaimDue atomically stamps claimed_at on up to limit due posts and
// returns them oldest scheduled_at first. SKIP LOCKED keeps a second
// orchestrator instance from claiming the same rows.
func (r *postRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `
		UPDATE posts SET claimed_at = $1, updated_at = $1
		WHERE id IN (
			SELECT id FROM posts
			WHERE status = $2 AND scheduled_at <= $1 AND claimed_at IS NULL
			ORDER BY scheduled_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + postColumns

	rows, err := r.db.QueryContext(ctx, query, now, models.PostStatusScheduled, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	// RETURNING does not preserve the subquery ordering.
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].ScheduledAt == nil || posts[j].ScheduledAt == nil {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].ScheduledAt.Before(*posts[j].ScheduledAt)
	})
	return posts, nil
}

// Claim fences a single post for the on-demand publish path. Returns
// false when the post is already claimed or in a terminal state.
func (r *postRepository) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts SET claimed_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ($3, $4) AND claimed_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, now, models.PostStatusDraft, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, status string, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *postRepository) StampCleanup(ctx context.Context, postID int64, cleanedAt time.Time) error {
	query := `
		UPDATE posts
		SET metadata = jsonb_set(COALESCE(metadata, '{}'::jsonb), '{media_cleaned_at}', to_jsonb($1::text)),
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, cleanedAt.UTC().Format(time.RFC3339), time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

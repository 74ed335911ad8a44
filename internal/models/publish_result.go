package models

import "time"

// PublishResult is append-only: one row per (post, channel) pair that was
// actually attempted. Channels that were never attempted leave no row.
type PublishResult struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	ChannelID    int64     `db:"channel_id" json:"channel_id"`
	Platform     string    `db:"platform" json:"platform"`
	Status       string    `db:"status" json:"status"`
	ExternalID   string    `db:"external_id" json:"external_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	PublishedAt  time.Time `db:"published_at" json:"published_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	ResultStatusSuccess = "success"
	ResultStatusFailed  = "failed"
)

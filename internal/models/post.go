package models

import "time"

type Post struct {
	ID                 int64             `db:"id" json:"id"`
	UserID             int64             `db:"user_id" json:"user_id"`
	PostType           string            `db:"post_type" json:"post_type"`
	Content            string            `db:"content" json:"content"`
	Title              string            `db:"title" json:"title"`
	Platforms          []string          `db:"platforms" json:"platforms"`
	SelectedChannelIDs []int64           `db:"selected_channel_ids" json:"selected_channel_ids"`
	Status             string            `db:"status" json:"status"`
	ScheduledAt        *time.Time        `db:"scheduled_at" json:"scheduled_at"`
	ClaimedAt          *time.Time        `db:"claimed_at" json:"claimed_at"`
	Metadata           map[string]string `db:"metadata" json:"metadata"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusPartial   = "partial"
	PostStatusFailed    = "failed"
	PostStatusCancelled = "cancelled"
)

const (
	PostTypeText     = "text"
	PostTypePhoto    = "photo"
	PostTypeVideo    = "video"
	PostTypeReel     = "reel"
	PostTypeCarousel = "carousel"
	PostTypeAlbum    = "album"
	PostTypeThread   = "thread"
	PostTypeStory    = "story"
)

// MetadataCleanupKey marks a post whose media files have already been
// removed from storage.
const MetadataCleanupKey = "media_cleaned_at"

func IsTerminalStatus(status string) bool {
	switch status {
	case PostStatusPublished, PostStatusPartial, PostStatusFailed, PostStatusCancelled:
		return true
	}
	return false
}

package models

import "time"

// RefreshAudit records a failed credential refresh attempt. The channel
// itself is left unchanged so the next tick can retry it.
type RefreshAudit struct {
	ID           string    `db:"id"`
	ChannelID    int64     `db:"channel_id"`
	Platform     string    `db:"platform"`
	ErrorMessage string    `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
}

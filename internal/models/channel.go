package models

import "time"

type Channel struct {
	ID                int64             `db:"id" json:"id"`
	UserID            int64             `db:"user_id" json:"user_id"`
	Platform          string            `db:"platform" json:"platform"`
	AccountID         string            `db:"account_id" json:"account_id"`
	AccountName       string            `db:"account_name" json:"account_name"`
	AccessCredential  string            `db:"access_credential" json:"-"`
	RefreshCredential string            `db:"refresh_credential" json:"-"`
	CredentialExpiry  *time.Time        `db:"credential_expiry" json:"credential_expiry"`
	Metadata          map[string]string `db:"metadata" json:"metadata"`
	IsActive          bool              `db:"is_active" json:"is_active"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

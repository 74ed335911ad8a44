package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/relaypost/relaypost/internal/models"
)

type ChannelRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	ListActiveByIDs(ctx context.Context, userID int64, ids []int64) ([]*models.Channel, error)
	FirstActiveByPlatform(ctx context.Context, userID int64, platform string) (*models.Channel, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Channel, error)
	ListExpiringWithin(ctx context.Context, from, to time.Time) ([]*models.Channel, error)
	UpdateCredentials(ctx context.Context, id int64, access, refresh string, expiry *time.Time) error
}

type channelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) ChannelRepository {
	return &channelRepository{db: db}
}

const channelColumns = `id, user_id, platform, account_id, account_name, access_credential, refresh_credential, credential_expiry, metadata, is_active, created_at, updated_at`

func scanChannel(row interface{ Scan(...any) error }) (*models.Channel, error) {
	var ch models.Channel
	var refresh sql.NullString
	var expiry sql.NullTime
	var metadata []byte

	err := row.Scan(&ch.ID, &ch.UserID, &ch.Platform, &ch.AccountID, &ch.AccountName,
		&ch.AccessCredential, &refresh, &expiry, &metadata, &ch.IsActive,
		&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, err
	}

	ch.RefreshCredential = refresh.String
	if expiry.Valid {
		ch.CredentialExpiry = &expiry.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &ch.Metadata); err != nil {
			slog.Info(err.Error())
		}
	}
	return &ch, nil
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = $1`
	ch, err := scanChannel(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return ch, nil
}

func (r *channelRepository) ListActiveByIDs(ctx context.Context, userID int64, ids []int64) ([]*models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE user_id = $1 AND is_active = TRUE AND id = ANY($2)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

func (r *channelRepository) FirstActiveByPlatform(ctx context.Context, userID int64, platform string) (*models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE user_id = $1 AND platform = $2 AND is_active = TRUE
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	ch, err := scanChannel(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return ch, nil
}

func (r *channelRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

// ListExpiringWithin selects active channels whose credential expires
// inside (from, to]. Already-expired channels are excluded; those are
// only reachable through the manual refresh-all path.
func (r *channelRepository) ListExpiringWithin(ctx context.Context, from, to time.Time) ([]*models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE is_active = TRUE
		  AND credential_expiry IS NOT NULL
		  AND credential_expiry > $1
		  AND credential_expiry <= $2
		ORDER BY credential_expiry ASC
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectChannels(rows)
}

func (r *channelRepository) UpdateCredentials(ctx context.Context, id int64, access, refresh string, expiry *time.Time) error {
	query := `
		UPDATE channels
		SET
			access_credential = COALESCE(NULLIF($2, ''), access_credential),
			refresh_credential = COALESCE(NULLIF($3, ''), refresh_credential),
			credential_expiry = COALESCE($4, credential_expiry),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, access, refresh, expiry)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; channel may not exist")
		return errors.New("no rows affected; channel may not exist")
	}
	return nil
}

func collectChannels(rows *sql.Rows) ([]*models.Channel, error) {
	var channels []*models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return channels, nil
}

package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/relaypost/relaypost/internal/models"
)

type RefreshAuditRepository interface {
	Create(ctx context.Context, audit *models.RefreshAudit) error
}

type refreshAuditRepository struct {
	db *sql.DB
}

func NewRefreshAuditRepository(db *sql.DB) RefreshAuditRepository {
	return &refreshAuditRepository{db: db}
}

func (r *refreshAuditRepository) Create(ctx context.Context, audit *models.RefreshAudit) error {
	query := `
		INSERT INTO refresh_audits (id, channel_id, platform, error_message)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, audit.ID, audit.ChannelID, audit.Platform, audit.ErrorMessage)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

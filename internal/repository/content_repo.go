package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/affiliateops/backend/internal/models"
)

// ContentRepo reads videos owned by the analytics subsystem.
type ContentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

// FindByExternalOrInternalID matches id against the YouTube video id or the row
// id. It returns nil, nil when nothing matches.
func (r *ContentRepo) FindByExternalOrInternalID(ctx context.Context, id string) (*models.ContentUnit, error) {
	var c models.ContentUnit
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(youtube_video_id, ''), COALESCE(title, '')
		FROM videos
		WHERE youtube_video_id = $1 OR id::text = $1
		ORDER BY (youtube_video_id = $1) DESC
		LIMIT 1
	`, id).Scan(&c.ID, &c.ExternalID, &c.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

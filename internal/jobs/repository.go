package jobs

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/affiliateops/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RunStore = (*Repository)(nil)

func (r *Repository) Save(ctx context.Context, run *models.SyncRun) error {
	results, err := json.Marshal(run.Results)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO sync_runs (id, trigger, started_at, finished_at, imported, updated, results)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, run.ID, run.Trigger, run.StartedAt, run.FinishedAt, run.Imported, run.Updated, results)
	return err
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, trigger, started_at, finished_at, imported, updated, results
		FROM sync_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.SyncRun{}
	for rows.Next() {
		var run models.SyncRun
		var results []byte
		if err := rows.Scan(&run.ID, &run.Trigger, &run.StartedAt, &run.FinishedAt, &run.Imported, &run.Updated, &results); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(results, &run.Results); err != nil {
			return nil, err
		}
		list = append(list, &run)
	}
	return list, rows.Err()
}

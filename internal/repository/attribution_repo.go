package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/affiliateops/backend/internal/models"
)

type AttributionRepo struct {
	pool *pgxpool.Pool
}

func NewAttributionRepo(pool *pgxpool.Pool) *AttributionRepo {
	return &AttributionRepo{pool: pool}
}

func (r *AttributionRepo) Create(ctx context.Context, a *models.VideoAttributionRecord) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO video_attributions (id, video_id, conversion_id, network, network_transaction_id, offer_id, payout, revenue, currency, conversion_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10)
		RETURNING created_at
	`, a.ID, a.VideoID, a.ConversionID, string(a.Network), a.NetworkTransactionID, a.OfferID,
		a.Payout.String(), a.Revenue.String(), a.Currency, string(a.ConversionStatus)).Scan(&a.CreatedAt)
}

// RevenueByVideo aggregates attributions per video using only the latest row per
// conversion, so re-attributions after status changes are not double counted.
func (r *AttributionRepo) RevenueByVideo(ctx context.Context, dr models.DateRange) ([]models.VideoRevenue, error) {
	var w whereBuilder
	w.addRange("l.created_at", dr)
	rows, err := r.pool.Query(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (conversion_id) video_id, conversion_id, revenue, conversion_status, created_at
			FROM video_attributions
			ORDER BY conversion_id, created_at DESC
		)
		SELECT v.id::text, COALESCE(v.youtube_video_id, ''), COALESCE(v.title, ''), COUNT(*) AS conversions,
			COALESCE(SUM(l.revenue) FILTER (WHERE l.conversion_status IN ('pending', 'approved')), 0) AS revenue
		FROM latest l
		JOIN videos v ON v.id = l.video_id
		`+w.sql()+`
		GROUP BY v.id, v.youtube_video_id, v.title
		ORDER BY revenue DESC, conversions DESC
	`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.VideoRevenue{}
	for rows.Next() {
		var v models.VideoRevenue
		if err := rows.Scan(&v.VideoID, &v.ExternalID, &v.Title, &v.Conversions, &v.Revenue); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

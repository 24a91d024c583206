package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/affiliateops/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// UpsertConversion is one INSERT ... ON CONFLICT statement, so concurrent first
// observations of the same transaction resolve to a single row without locks.
// prev reads the pre-statement snapshot; it is empty when the row is new.
func (r *Repository) UpsertConversion(ctx context.Context, rec *models.ConversionRecord, now time.Time) (UpsertResult, error) {
	var (
		res                      UpsertResult
		stored                   models.ConversionRecord
		previous, status, payout string
	)
	err := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT status FROM conversions WHERE network = $1 AND network_transaction_id = $2
		)
		INSERT INTO conversions (
			id, network, network_transaction_id, offer_id, offer_name, payout, currency, status,
			click_date, conversion_date, approval_date, sub_id_1, sub_id_2, sub_id_3, created_at, updated_at
		)
		VALUES (
			$3, $1, $2, $4, $5, $6::numeric, $7, $8::text,
			$9, $10, CASE WHEN $8::text = 'approved' THEN $14::timestamptz END, $11, $12, $13, $14, $14
		)
		ON CONFLICT (network, network_transaction_id) DO UPDATE SET
			status          = EXCLUDED.status,
			payout          = EXCLUDED.payout,
			currency        = EXCLUDED.currency,
			offer_id        = COALESCE(NULLIF(EXCLUDED.offer_id, ''), conversions.offer_id),
			offer_name      = COALESCE(NULLIF(EXCLUDED.offer_name, ''), conversions.offer_name),
			click_date      = COALESCE(EXCLUDED.click_date, conversions.click_date),
			conversion_date = COALESCE(EXCLUDED.conversion_date, conversions.conversion_date),
			sub_id_1        = COALESCE(NULLIF(EXCLUDED.sub_id_1, ''), conversions.sub_id_1),
			sub_id_2        = COALESCE(NULLIF(EXCLUDED.sub_id_2, ''), conversions.sub_id_2),
			sub_id_3        = COALESCE(NULLIF(EXCLUDED.sub_id_3, ''), conversions.sub_id_3),
			approval_date   = CASE
				WHEN conversions.approval_date IS NULL AND EXCLUDED.status = 'approved' THEN EXCLUDED.updated_at
				ELSE conversions.approval_date
			END,
			updated_at      = EXCLUDED.updated_at
		RETURNING id, (xmax = 0), COALESCE((SELECT status FROM prev), ''), status, approval_date,
			offer_id, offer_name, payout::text, currency, click_date, conversion_date,
			sub_id_1, sub_id_2, sub_id_3, created_at, updated_at
	`, string(rec.Network), rec.NetworkTransactionID, rec.ID, rec.OfferID, rec.OfferName,
		rec.Payout.String(), rec.Currency, string(rec.Status),
		rec.ClickDate, rec.ConversionDate, rec.SubID1, rec.SubID2, rec.SubID3, now,
	).Scan(&stored.ID, &res.Created, &previous, &status, &stored.ApprovalDate,
		&stored.OfferID, &stored.OfferName, &payout, &stored.Currency, &stored.ClickDate, &stored.ConversionDate,
		&stored.SubID1, &stored.SubID2, &stored.SubID3, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return UpsertResult{}, err
	}
	if stored.Payout, err = decimal.NewFromString(payout); err != nil {
		return UpsertResult{}, fmt.Errorf("scan payout %q: %w", payout, err)
	}
	stored.Network = rec.Network
	stored.NetworkTransactionID = rec.NetworkTransactionID
	stored.Status = models.ConversionStatus(status)

	res.ID = stored.ID
	res.PreviousStatus = models.ConversionStatus(previous)
	res.Status = stored.Status
	res.ApprovalDate = stored.ApprovalDate
	res.Conversion = stored
	return res, nil
}

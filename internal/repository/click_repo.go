package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/affiliateops/backend/internal/models"
)

// ClickRepo reads the outbound-click log written by the link redirector.
type ClickRepo struct {
	pool *pgxpool.Pool
}

func NewClickRepo(pool *pgxpool.Pool) *ClickRepo {
	return &ClickRepo{pool: pool}
}

func (r *ClickRepo) ListByOffer(ctx context.Context, offerID string, limit int) ([]models.ClickRecord, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	rows, err := r.pool.Query(ctx, `
		SELECT click_id, offer_id, COALESCE(network, ''), COALESCE(medium, ''), COALESCE(campaign, ''), clicked_at
		FROM clicks WHERE offer_id = $1
		ORDER BY clicked_at DESC
		LIMIT $2
	`, offerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.ClickRecord{}
	for rows.Next() {
		var c models.ClickRecord
		if err := rows.Scan(&c.ClickID, &c.OfferID, &c.Network, &c.Medium, &c.Campaign, &c.ClickedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// OfferPerformance joins click counts with conversion counts per offer.
func (r *ClickRepo) OfferPerformance(ctx context.Context, dr models.DateRange) ([]models.OfferPerformance, error) {
	var cw, kw whereBuilder
	cw.addRange(conversionDateExpr, dr)
	// Both CTEs share one argument list; clicks placeholders continue the numbering.
	kw.args = cw.args
	kw.addRange("clicked_at", dr)
	rows, err := r.pool.Query(ctx, `
		WITH conv AS (
			SELECT offer_id, MAX(offer_name) AS offer_name, COUNT(*) AS conversions,
				COALESCE(SUM(payout) FILTER (WHERE status IN ('pending', 'approved')), 0) AS revenue
			FROM conversions `+cw.sql()+`
			GROUP BY offer_id
		),
		clk AS (
			SELECT offer_id, COUNT(*) AS clicks
			FROM clicks `+kw.sql()+`
			GROUP BY offer_id
		)
		SELECT COALESCE(conv.offer_id, clk.offer_id), COALESCE(conv.offer_name, ''),
			COALESCE(clk.clicks, 0), COALESCE(conv.conversions, 0), COALESCE(conv.revenue, 0) AS revenue
		FROM conv
		FULL OUTER JOIN clk ON clk.offer_id = conv.offer_id
		ORDER BY revenue DESC, 3 DESC
	`, kw.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.OfferPerformance{}
	for rows.Next() {
		var p models.OfferPerformance
		if err := rows.Scan(&p.OfferID, &p.OfferName, &p.Clicks, &p.Conversions, &p.Revenue); err != nil {
			return nil, err
		}
		p.ConversionRate = ConversionRate(p.Conversions, p.Clicks)
		list = append(list, p)
	}
	return list, rows.Err()
}

// ConversionRate is conversions per hundred clicks, rounded to two places.
func ConversionRate(conversions, clicks int) decimal.Decimal {
	if clicks <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(conversions)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(clicks))).Round(2)
}

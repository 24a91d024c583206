package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/affiliateops/backend/internal/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// conversionDateExpr is the timestamp reports filter on.
const conversionDateExpr = "COALESCE(conversion_date, created_at)"

const conversionColumns = `id, network, network_transaction_id, offer_id, offer_name, payout, currency, status,
	click_date, conversion_date, approval_date, sub_id_1, sub_id_2, sub_id_3, created_at, updated_at`

type ConversionRepo struct {
	pool *pgxpool.Pool
}

func NewConversionRepo(pool *pgxpool.Pool) *ConversionRepo {
	return &ConversionRepo{pool: pool}
}

func scanConversion(row pgx.Row) (*models.ConversionRecord, error) {
	var c models.ConversionRecord
	err := row.Scan(&c.ID, &c.Network, &c.NetworkTransactionID, &c.OfferID, &c.OfferName, &c.Payout, &c.Currency, &c.Status,
		&c.ClickDate, &c.ConversionDate, &c.ApprovalDate, &c.SubID1, &c.SubID2, &c.SubID3, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversionRepo) GetByKey(ctx context.Context, network models.NetworkName, txID string) (*models.ConversionRecord, error) {
	c, err := scanConversion(r.pool.QueryRow(ctx, `
		SELECT `+conversionColumns+`
		FROM conversions WHERE network = $1 AND network_transaction_id = $2
	`, string(network), txID))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return c, nil
}

// List returns conversions newest first, filtered by status and conversion date.
func (r *ConversionRepo) List(ctx context.Context, f models.ConversionFilter) ([]*models.ConversionRecord, error) {
	var w whereBuilder
	if f.Status != nil {
		w.add("status = ?", string(*f.Status))
	}
	w.addRange(conversionDateExpr, f.Range)
	limit := f.Page.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := max(f.Page.Offset, 0)
	query := `SELECT ` + conversionColumns + ` FROM conversions ` + w.sql() +
		` ORDER BY ` + conversionDateExpr + ` DESC, id LIMIT ` + w.next(limit) + ` OFFSET ` + w.next(offset)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.ConversionRecord{}
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// StatusAggregate is the per-status count and payout sum.
type StatusAggregate struct {
	Status models.ConversionStatus
	Count  int
	Sum    decimal.Decimal
}

func (r *ConversionRepo) Stats(ctx context.Context, dr models.DateRange) (*models.ConversionStats, error) {
	var w whereBuilder
	w.addRange(conversionDateExpr, dr)
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(payout), 0)
		FROM conversions `+w.sql()+`
		GROUP BY status
	`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var aggs []StatusAggregate
	for rows.Next() {
		var a StatusAggregate
		if err := rows.Scan(&a.Status, &a.Count, &a.Sum); err != nil {
			return nil, err
		}
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return BuildStats(aggs), nil
}

// BuildStats folds per-status aggregates into ledger stats. Revenue counts
// pending and approved rows; the average is over those rows.
func BuildStats(aggs []StatusAggregate) *models.ConversionStats {
	stats := &models.ConversionStats{Counts: make(map[models.ConversionStatus]int, len(models.AllStatuses))}
	for _, s := range models.AllStatuses {
		stats.Counts[s] = 0
	}
	revenueRows := 0
	for _, a := range aggs {
		stats.Counts[a.Status] += a.Count
		stats.Total += a.Count
		if revenueBearing(a.Status) {
			stats.TotalRevenue = stats.TotalRevenue.Add(a.Sum)
			revenueRows += a.Count
		}
		if a.Status == models.StatusApproved {
			stats.ApprovedRevenue = stats.ApprovedRevenue.Add(a.Sum)
		}
	}
	if revenueRows > 0 {
		stats.AveragePayout = stats.TotalRevenue.Div(decimal.NewFromInt(int64(revenueRows))).Round(2)
	}
	return stats
}

func revenueBearing(s models.ConversionStatus) bool {
	return s == models.StatusPending || s == models.StatusApproved
}

// RevenueBySource groups revenue-bearing conversions by network, highest first.
func (r *ConversionRepo) RevenueBySource(ctx context.Context, dr models.DateRange) ([]models.SourceRevenue, error) {
	var w whereBuilder
	w.add("status = ANY(?)", []string{string(models.StatusPending), string(models.StatusApproved)})
	w.addRange(conversionDateExpr, dr)
	rows, err := r.pool.Query(ctx, `
		SELECT network, COALESCE(SUM(payout), 0) AS revenue, COUNT(*)
		FROM conversions `+w.sql()+`
		GROUP BY network
		ORDER BY revenue DESC, network
	`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.SourceRevenue{}
	for rows.Next() {
		var s models.SourceRevenue
		if err := rows.Scan(&s.Source, &s.Revenue, &s.Conversions); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ApplyShares(list)
	return list, nil
}

// ApplyShares sets each entry's percentage of total revenue, rounded to two
// places. A zero total yields zero percentages.
func ApplyShares(list []models.SourceRevenue) {
	total := decimal.Zero
	for _, s := range list {
		total = total.Add(s.Revenue)
	}
	hundred := decimal.NewFromInt(100)
	for i := range list {
		if total.IsZero() {
			list[i].Percentage = decimal.Zero
			continue
		}
		list[i].Percentage = list[i].Revenue.Mul(hundred).Div(total).Round(2)
	}
}

package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/affiliateops/backend/internal/cache"
	"github.com/affiliateops/backend/internal/models"
)

// DefaultCacheTTL bounds how stale an aggregate report may be.
const DefaultCacheTTL = time.Minute

type ConversionStore interface {
	// GetByKey returns repository.ErrNotFound when no row matches.
	GetByKey(ctx context.Context, network models.NetworkName, txID string) (*models.ConversionRecord, error)
	List(ctx context.Context, f models.ConversionFilter) ([]*models.ConversionRecord, error)
	Stats(ctx context.Context, dr models.DateRange) (*models.ConversionStats, error)
	RevenueBySource(ctx context.Context, dr models.DateRange) ([]models.SourceRevenue, error)
}

type AttributionStore interface {
	RevenueByVideo(ctx context.Context, dr models.DateRange) ([]models.VideoRevenue, error)
}

type ClickStore interface {
	ListByOffer(ctx context.Context, offerID string, limit int) ([]models.ClickRecord, error)
	OfferPerformance(ctx context.Context, dr models.DateRange) ([]models.OfferPerformance, error)
}

// Reports serves the read side of the ledger. Aggregates go through the cache;
// conversion and click listings are always read live.
type Reports struct {
	conversions  ConversionStore
	attributions AttributionStore
	clicks       ClickStore
	cache        cache.Cache
	ttl          time.Duration
	log          *slog.Logger
}

// NewReports builds the reporting service. c may be nil; ttl <= 0 uses DefaultCacheTTL.
func NewReports(conversions ConversionStore, attributions AttributionStore, clicks ClickStore, c cache.Cache, ttl time.Duration, log *slog.Logger) *Reports {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reports{
		conversions:  conversions,
		attributions: attributions,
		clicks:       clicks,
		cache:        c,
		ttl:          ttl,
		log:          log,
	}
}

func (r *Reports) ListConversions(ctx context.Context, f models.ConversionFilter) ([]*models.ConversionRecord, error) {
	return r.conversions.List(ctx, f)
}

func (r *Reports) GetConversion(ctx context.Context, network models.NetworkName, txID string) (*models.ConversionRecord, error) {
	return r.conversions.GetByKey(ctx, network, txID)
}

func (r *Reports) Stats(ctx context.Context, dr models.DateRange) (*models.ConversionStats, error) {
	return cached(ctx, r, "stats:"+rangeKey(dr), func() (*models.ConversionStats, error) {
		return r.conversions.Stats(ctx, dr)
	})
}

func (r *Reports) RevenueBySource(ctx context.Context, dr models.DateRange) ([]models.SourceRevenue, error) {
	return cached(ctx, r, "revenue-by-source:"+rangeKey(dr), func() ([]models.SourceRevenue, error) {
		return r.conversions.RevenueBySource(ctx, dr)
	})
}

func (r *Reports) RevenueByVideo(ctx context.Context, dr models.DateRange) ([]models.VideoRevenue, error) {
	return cached(ctx, r, "revenue-by-video:"+rangeKey(dr), func() ([]models.VideoRevenue, error) {
		return r.attributions.RevenueByVideo(ctx, dr)
	})
}

func (r *Reports) OfferPerformance(ctx context.Context, dr models.DateRange) ([]models.OfferPerformance, error) {
	return cached(ctx, r, "offers:"+rangeKey(dr), func() ([]models.OfferPerformance, error) {
		return r.clicks.OfferPerformance(ctx, dr)
	})
}

func (r *Reports) OfferClicks(ctx context.Context, offerID string, limit int) ([]models.ClickRecord, error) {
	return r.clicks.ListByOffer(ctx, offerID, limit)
}

// cached returns the cached value for key, loading and storing it on a miss.
// Cache errors degrade to a live read.
func cached[T any](ctx context.Context, r *Reports, key string, load func() (T, error)) (T, error) {
	var out T
	hit, err := r.cache.Get(ctx, key, &out)
	if err != nil {
		r.log.Warn("report cache read failed", "key", key, "error", err)
	} else if hit {
		return out, nil
	}
	out, err = load()
	if err != nil {
		return out, err
	}
	if err := r.cache.Set(ctx, key, out, r.ttl); err != nil {
		r.log.Warn("report cache write failed", "key", key, "error", err)
	}
	return out, nil
}

func rangeKey(dr models.DateRange) string {
	return timeKey(dr.From) + ".." + timeKey(dr.To)
}

func timeKey(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return t.UTC().Format(time.RFC3339)
}

// Package attribution links conversions to the video that produced the click.
package attribution

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/affiliateops/backend/internal/models"
)

// ContentLookup resolves a video by its external or internal id; nil means no match.
type ContentLookup interface {
	FindByExternalOrInternalID(ctx context.Context, id string) (*models.ContentUnit, error)
}

type Store interface {
	Create(ctx context.Context, a *models.VideoAttributionRecord) error
}

// Linker creates a VideoAttributionRecord when a conversion's video hint resolves.
type Linker struct {
	content ContentLookup
	store   Store
}

func NewLinker(content ContentLookup, store Store) *Linker {
	return &Linker{content: content, store: store}
}

// Attribute returns nil, nil when the hint is empty or unknown. Errors come only
// from the lookup or the insert; callers treat them as a missed attribution.
func (l *Linker) Attribute(ctx context.Context, conv *models.ConversionRecord, videoHint string) (*models.VideoAttributionRecord, error) {
	videoHint = strings.TrimSpace(videoHint)
	if videoHint == "" {
		return nil, nil
	}
	unit, err := l.content.FindByExternalOrInternalID(ctx, videoHint)
	if err != nil {
		return nil, fmt.Errorf("lookup content unit %q: %w", videoHint, err)
	}
	if unit == nil {
		return nil, nil
	}
	rec := &models.VideoAttributionRecord{
		ID:                   uuid.New(),
		VideoID:              unit.ID,
		ConversionID:         conv.ID,
		Network:              conv.Network,
		NetworkTransactionID: conv.NetworkTransactionID,
		OfferID:              conv.OfferID,
		Payout:               conv.Payout,
		Revenue:              conv.Payout,
		Currency:             conv.Currency,
		ConversionStatus:     conv.Status,
	}
	if err := l.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create attribution: %w", err)
	}
	return rec, nil
}

// Package ingest applies conversion observations: ledger upsert, then best-effort
// attribution and change publishing. Webhooks, sync runs and manual test entries
// all go through Pipeline.Apply.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/affiliateops/backend/internal/events"
	"github.com/affiliateops/backend/internal/ledger"
	"github.com/affiliateops/backend/internal/models"
)

type Linker interface {
	Attribute(ctx context.Context, conv *models.ConversionRecord, videoHint string) (*models.VideoAttributionRecord, error)
}

// Outcome is the result of one applied observation.
type Outcome struct {
	ledger.UpsertResult
	Attribution *models.VideoAttributionRecord
}

type Pipeline struct {
	writer    ledger.Service
	linker    Linker
	publisher events.Publisher
	logger    *slog.Logger
}

// NewPipeline builds a pipeline. linker and publisher may be nil.
func NewPipeline(writer ledger.Service, linker Linker, publisher events.Publisher, logger *slog.Logger) *Pipeline {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{writer: writer, linker: linker, publisher: publisher, logger: logger}
}

// Apply returns only ledger errors (*ledger.ValidationError, *ledger.StorageError).
// Attribution and publish failures are logged.
func (p *Pipeline) Apply(ctx context.Context, ev models.ConversionEvent) (Outcome, error) {
	res, err := p.writer.Upsert(ctx, ev)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{UpsertResult: res}
	conv := res.Conversion

	// Attribution runs once per status; unchanged re-observations add nothing.
	if p.linker != nil && res.StatusChanged() && conv.SubID1 != "" {
		rec, err := p.linker.Attribute(ctx, &conv, conv.SubID1)
		if err != nil {
			p.logger.Warn("attribution failed",
				"network", conv.Network,
				"transaction_id", conv.NetworkTransactionID,
				"conversion_id", conv.ID,
				"error", err,
			)
		}
		out.Attribution = rec
	}

	msg := events.ConversionUpserted{
		Type:                 events.TypeConversionUpserted,
		ConversionID:         conv.ID,
		Network:              conv.Network,
		NetworkTransactionID: conv.NetworkTransactionID,
		OfferID:              conv.OfferID,
		Status:               res.Status,
		PreviousStatus:       res.PreviousStatus,
		Created:              res.Created,
		Payout:               conv.Payout,
		Currency:             conv.Currency,
		ApprovalDate:         res.ApprovalDate,
		OccurredAt:           time.Now().UTC(),
	}
	if err := p.publisher.PublishConversion(ctx, msg); err != nil {
		p.logger.Warn("publish conversion event failed",
			"network", conv.Network,
			"transaction_id", conv.NetworkTransactionID,
			"error", err,
		)
	}
	return out, nil
}

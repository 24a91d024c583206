// Package events publishes ledger change notifications to downstream consumers.
// Delivery is best-effort; the ledger stays the system of record.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/affiliateops/backend/internal/models"
)

const TypeConversionUpserted = "conversion.upserted"

// ConversionUpserted is published after each applied observation.
type ConversionUpserted struct {
	Type                 string                  `json:"type"`
	ConversionID         uuid.UUID               `json:"conversion_id"`
	Network              models.NetworkName      `json:"network"`
	NetworkTransactionID string                  `json:"network_transaction_id"`
	OfferID              string                  `json:"offer_id"`
	Status               models.ConversionStatus `json:"status"`
	PreviousStatus       models.ConversionStatus `json:"previous_status,omitempty"`
	Created              bool                    `json:"created"`
	Payout               decimal.Decimal         `json:"payout"`
	Currency             string                  `json:"currency"`
	ApprovalDate         *time.Time              `json:"approval_date,omitempty"`
	OccurredAt           time.Time               `json:"occurred_at"`
}

// PartitionKey keeps every message for one transaction on the same partition.
func (e ConversionUpserted) PartitionKey() string {
	return string(e.Network) + ":" + e.NetworkTransactionID
}

type Publisher interface {
	PublishConversion(ctx context.Context, evt ConversionUpserted) error
	Close() error
}

// Noop discards every message. Used when no brokers are configured.
type Noop struct{}

func (Noop) PublishConversion(context.Context, ConversionUpserted) error { return nil }
func (Noop) Close() error                                                { return nil }

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContentUnit is a published video owned by the video/analytics subsystem.
type ContentUnit struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
}

// VideoAttributionRecord links one observation of a conversion to the video that
// produced the referring click. Several rows may reference the same conversion.
type VideoAttributionRecord struct {
	ID                   uuid.UUID        `json:"id"`
	VideoID              uuid.UUID        `json:"video_id"`
	ConversionID         uuid.UUID        `json:"conversion_id"`
	Network              NetworkName      `json:"network"`
	NetworkTransactionID string           `json:"network_transaction_id"`
	OfferID              string           `json:"offer_id"`
	Payout               decimal.Decimal  `json:"payout"`
	Revenue              decimal.Decimal  `json:"revenue"`
	Currency             string           `json:"currency"`
	ConversionStatus     ConversionStatus `json:"conversion_status"`
	CreatedAt            time.Time        `json:"created_at"`
}

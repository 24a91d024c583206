package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateRange bounds a query; nil ends are open. To is exclusive.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ConversionFilter narrows listConversions.
type ConversionFilter struct {
	Status *ConversionStatus
	Range  DateRange
	Page   Pagination
}

// ConversionStats summarises the ledger. Revenue counts pending and approved rows;
// rejected and reversed rows are excluded.
type ConversionStats struct {
	Counts          map[ConversionStatus]int `json:"counts"`
	Total           int                      `json:"total"`
	TotalRevenue    decimal.Decimal          `json:"total_revenue"`
	ApprovedRevenue decimal.Decimal          `json:"approved_revenue"`
	AveragePayout   decimal.Decimal          `json:"average_payout"`
}

type SourceRevenue struct {
	Source      NetworkName     `json:"source"`
	Revenue     decimal.Decimal `json:"revenue"`
	Conversions int             `json:"conversions"`
	Percentage  decimal.Decimal `json:"percentage"`
}

type VideoRevenue struct {
	VideoID     string          `json:"video_id"`
	ExternalID  string          `json:"external_id"`
	Title       string          `json:"title"`
	Conversions int             `json:"conversions"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type OfferPerformance struct {
	OfferID        string          `json:"offer_id"`
	OfferName      string          `json:"offer_name"`
	Clicks         int             `json:"clicks"`
	Conversions    int             `json:"conversions"`
	Revenue        decimal.Decimal `json:"revenue"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

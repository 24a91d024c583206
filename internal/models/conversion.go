package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NetworkName identifies the affiliate network a conversion came from.
type NetworkName string

const (
	NetworkImpact           NetworkName = "impact"
	NetworkAwin             NetworkName = "awin"
	NetworkShareASaleLegacy NetworkName = "shareasale_legacy"
	NetworkPartnerStack     NetworkName = "partnerstack"
	NetworkManualTest       NetworkName = "manual-test"
)

// SyncNetworks are the networks polled by the sync orchestrator, in run order.
var SyncNetworks = []NetworkName{
	NetworkImpact,
	NetworkAwin,
	NetworkShareASaleLegacy,
	NetworkPartnerStack,
}

// ParseNetwork returns the network for s (case-insensitive) and whether it is known.
func ParseNetwork(s string) (NetworkName, bool) {
	n := NetworkName(strings.ToLower(strings.TrimSpace(s)))
	switch n {
	case NetworkImpact, NetworkAwin, NetworkShareASaleLegacy, NetworkPartnerStack, NetworkManualTest:
		return n, true
	}
	return "", false
}

// ConversionStatus is the ledger's canonical status vocabulary.
type ConversionStatus string

const (
	StatusPending  ConversionStatus = "pending"
	StatusApproved ConversionStatus = "approved"
	StatusRejected ConversionStatus = "rejected"
	StatusReversed ConversionStatus = "reversed"
)

// AllStatuses lists the canonical statuses in reporting order.
var AllStatuses = []ConversionStatus{StatusPending, StatusApproved, StatusRejected, StatusReversed}

func (s ConversionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusReversed:
		return true
	}
	return false
}

// ConversionRecord is one row of the conversion ledger. (Network, NetworkTransactionID)
// is unique across the table.
type ConversionRecord struct {
	ID                   uuid.UUID        `json:"id"`
	Network              NetworkName      `json:"network"`
	NetworkTransactionID string           `json:"network_transaction_id"`
	OfferID              string           `json:"offer_id"`
	OfferName            string           `json:"offer_name"`
	Payout               decimal.Decimal  `json:"payout"`
	Currency             string           `json:"currency"`
	Status               ConversionStatus `json:"status"`
	ClickDate            *time.Time       `json:"click_date,omitempty"`
	ConversionDate       *time.Time       `json:"conversion_date,omitempty"`
	ApprovalDate         *time.Time       `json:"approval_date,omitempty"`
	SubID1               string           `json:"sub_id_1,omitempty"`
	SubID2               string           `json:"sub_id_2,omitempty"`
	SubID3               string           `json:"sub_id_3,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// DefaultCurrency is stored when a source omits the currency code.
const DefaultCurrency = "USD"

// PayoutScale is the number of decimal places payouts are stored with.
const PayoutScale = 2

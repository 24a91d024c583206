package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionEvent is one observation of a conversion, already mapped out of a
// network's wire format. RawStatus is still in the network's vocabulary.
type ConversionEvent struct {
	Network              NetworkName         `json:"network"`
	NetworkTransactionID string              `json:"network_transaction_id"`
	OfferID              string              `json:"offer_id"`
	OfferName            string              `json:"offer_name"`
	Payout               decimal.NullDecimal `json:"payout"`
	Currency             string              `json:"currency"`
	RawStatus            string              `json:"raw_status"`
	ClickDate            *time.Time          `json:"click_date,omitempty"`
	ConversionDate       *time.Time          `json:"conversion_date,omitempty"`
	SubID1               string              `json:"sub_id_1,omitempty"`
	SubID2               string              `json:"sub_id_2,omitempty"`
	SubID3               string              `json:"sub_id_3,omitempty"`
}

package models

import "time"

// ClickRecord is written by the outbound-link redirector; read-only here.
type ClickRecord struct {
	ClickID   string    `json:"click_id"`
	OfferID   string    `json:"offer_id"`
	Network   string    `json:"network"`
	Medium    string    `json:"medium"`
	Campaign  string    `json:"campaign"`
	ClickedAt time.Time `json:"clicked_at"`
}

// Package ledger owns the conversion ledger's single write path. Every observation
// of a transaction, from a webhook or a sync, goes through Service.Upsert.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/providers"
)

// UpsertResult describes what an Upsert did to the ledger.
type UpsertResult struct {
	ID      uuid.UUID
	Created bool
	// PreviousStatus is empty when the row was created by this call.
	PreviousStatus models.ConversionStatus
	Status         models.ConversionStatus
	ApprovalDate   *time.Time
	// Conversion is the row as stored after the write. Fields the observation left
	// blank keep their earlier values.
	Conversion models.ConversionRecord
}

// StatusChanged reports whether the call created the row or moved it to a new status.
func (r UpsertResult) StatusChanged() bool {
	return r.Created || r.PreviousStatus != r.Status
}

// Store performs the atomic insert-or-update keyed on (network, network_transaction_id).
// On conflict it overwrites status, payout and currency, keeps stored offer, date
// and sub_id values the observation leaves blank, stamps approval_date with now
// only when the row has none and the new status is approved, and refreshes
// updated_at. The result's Conversion is the stored row.
type Store interface {
	UpsertConversion(ctx context.Context, rec *models.ConversionRecord, now time.Time) (UpsertResult, error)
}

type Service interface {
	Upsert(ctx context.Context, ev models.ConversionEvent) (UpsertResult, error)
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

// now is swapped in tests.
var now = time.Now

func (s *service) Upsert(ctx context.Context, ev models.ConversionEvent) (UpsertResult, error) {
	rec, err := recordFromEvent(ev)
	if err != nil {
		return UpsertResult{}, err
	}
	res, err := s.store.UpsertConversion(ctx, rec, now().UTC())
	if err != nil {
		return UpsertResult{}, &StorageError{Op: "upsert conversion", Err: err}
	}
	return res, nil
}

func recordFromEvent(ev models.ConversionEvent) (*models.ConversionRecord, error) {
	network, ok := models.ParseNetwork(string(ev.Network))
	if !ok {
		return nil, &ValidationError{Field: "network", Reason: "is not a known network"}
	}
	txID := strings.TrimSpace(ev.NetworkTransactionID)
	if txID == "" {
		return nil, &ValidationError{Field: "network_transaction_id", Reason: "is required"}
	}
	if !ev.Payout.Valid {
		return nil, &ValidationError{Field: "payout", Reason: "is required"}
	}
	currency := strings.ToUpper(strings.TrimSpace(ev.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &models.ConversionRecord{
		ID:                   uuid.New(),
		Network:              network,
		NetworkTransactionID: txID,
		OfferID:              strings.TrimSpace(ev.OfferID),
		OfferName:            strings.TrimSpace(ev.OfferName),
		Payout:               ev.Payout.Decimal.Round(models.PayoutScale),
		Currency:             currency,
		Status:               providers.Normalize(network, ev.RawStatus),
		ClickDate:            ev.ClickDate,
		ConversionDate:       ev.ConversionDate,
		SubID1:               strings.TrimSpace(ev.SubID1),
		SubID2:               strings.TrimSpace(ev.SubID2),
		SubID3:               strings.TrimSpace(ev.SubID3),
	}, nil
}

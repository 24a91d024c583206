package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/affiliateops/backend/internal/events"
	"github.com/affiliateops/backend/internal/ledger"
	"github.com/affiliateops/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubWriter struct {
	results []ledger.UpsertResult
	err     error
	calls   int
}

func (s *stubWriter) Upsert(_ context.Context, ev models.ConversionEvent) (ledger.UpsertResult, error) {
	if s.err != nil {
		return ledger.UpsertResult{}, s.err
	}
	res := s.results[s.calls]
	s.calls++
	res.Conversion = models.ConversionRecord{
		ID:                   res.ID,
		Network:              ev.Network,
		NetworkTransactionID: ev.NetworkTransactionID,
		Payout:               ev.Payout.Decimal,
		Status:               res.Status,
		SubID1:               ev.SubID1,
	}
	return res, nil
}

type recordingLinker struct {
	hints []string
	err   error
}

func (l *recordingLinker) Attribute(_ context.Context, conv *models.ConversionRecord, hint string) (*models.VideoAttributionRecord, error) {
	l.hints = append(l.hints, hint)
	if l.err != nil {
		return nil, l.err
	}
	return &models.VideoAttributionRecord{ID: uuid.New(), ConversionID: conv.ID, ConversionStatus: conv.Status}, nil
}

type recordingPublisher struct {
	msgs []events.ConversionUpserted
	err  error
}

func (p *recordingPublisher) PublishConversion(_ context.Context, m events.ConversionUpserted) error {
	p.msgs = append(p.msgs, m)
	return p.err
}
func (p *recordingPublisher) Close() error { return nil }

// ledgerRows keeps stored sub_id_1 when a later observation omits it, like the
// ledger's conflict update.
type ledgerRows struct {
	rows map[string]*models.ConversionRecord
}

func (l *ledgerRows) UpsertConversion(_ context.Context, rec *models.ConversionRecord, _ time.Time) (ledger.UpsertResult, error) {
	key := string(rec.Network) + "/" + rec.NetworkTransactionID
	row, ok := l.rows[key]
	if !ok {
		cp := *rec
		l.rows[key] = &cp
		return ledger.UpsertResult{ID: cp.ID, Created: true, Status: cp.Status, Conversion: cp}, nil
	}
	previous := row.Status
	row.Status = rec.Status
	row.Payout = rec.Payout
	if rec.SubID1 != "" {
		row.SubID1 = rec.SubID1
	}
	return ledger.UpsertResult{ID: row.ID, PreviousStatus: previous, Status: row.Status, Conversion: *row}, nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleEvent(subID string) models.ConversionEvent {
	return models.ConversionEvent{
		Network:              models.NetworkAwin,
		NetworkTransactionID: "A-1",
		OfferID:              "42",
		Payout:               decimal.NewNullDecimal(decimal.RequireFromString("5.00")),
		RawStatus:            "pending",
		SubID1:               subID,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestApply_AttributesOnCreateAndStatusChangeOnly(t *testing.T) {
	id := uuid.New()
	writer := &stubWriter{results: []ledger.UpsertResult{
		{ID: id, Created: true, Status: models.StatusPending},
		{ID: id, PreviousStatus: models.StatusPending, Status: models.StatusPending},
		{ID: id, PreviousStatus: models.StatusPending, Status: models.StatusApproved},
	}}
	linker := &recordingLinker{}
	pub := &recordingPublisher{}
	p := NewPipeline(writer, linker, pub, quietLogger())

	for i := 0; i < 3; i++ {
		if _, err := p.Apply(context.Background(), sampleEvent("vid-1")); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	if len(linker.hints) != 2 {
		t.Fatalf("expected 2 attribution calls (create + status change), got %d", len(linker.hints))
	}
	if len(pub.msgs) != 3 {
		t.Fatalf("expected 3 published messages, got %d", len(pub.msgs))
	}
	last := pub.msgs[2]
	if last.Status != models.StatusApproved || last.PreviousStatus != models.StatusPending || last.PartitionKey() != "awin:A-1" {
		t.Errorf("unexpected message %+v", last)
	}
}

func TestApply_NoHintSkipsAttribution(t *testing.T) {
	writer := &stubWriter{results: []ledger.UpsertResult{{ID: uuid.New(), Created: true, Status: models.StatusPending}}}
	linker := &recordingLinker{}
	out, err := NewPipeline(writer, linker, nil, quietLogger()).Apply(context.Background(), sampleEvent(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(linker.hints) != 0 || out.Attribution != nil {
		t.Fatalf("attribution should be skipped without a hint")
	}
}

func TestApply_AttributionAndPublishFailuresAreSwallowed(t *testing.T) {
	writer := &stubWriter{results: []ledger.UpsertResult{{ID: uuid.New(), Created: true, Status: models.StatusPending}}}
	linker := &recordingLinker{err: errors.New("lookup failed")}
	pub := &recordingPublisher{err: errors.New("broker down")}
	out, err := NewPipeline(writer, linker, pub, quietLogger()).Apply(context.Background(), sampleEvent("vid-1"))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !out.Created || out.Attribution != nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestApply_LedgerErrorIsReturned(t *testing.T) {
	cause := &ledger.StorageError{Op: "upsert conversion", Err: errors.New("timeout")}
	pub := &recordingPublisher{}
	_, err := NewPipeline(&stubWriter{err: cause}, &recordingLinker{}, pub, quietLogger()).
		Apply(context.Background(), sampleEvent("vid-1"))
	var serr *ledger.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if len(pub.msgs) != 0 {
		t.Fatal("nothing should be published when the write fails")
	}
}

func TestApply_StatusChangeWithoutHintUsesStoredSubID(t *testing.T) {
	store := &ledgerRows{rows: make(map[string]*models.ConversionRecord)}
	linker := &recordingLinker{}
	pub := &recordingPublisher{}
	p := NewPipeline(ledger.NewService(store), linker, pub, quietLogger())
	ctx := context.Background()

	if _, err := p.Apply(ctx, sampleEvent("VID1")); err != nil {
		t.Fatal(err)
	}
	approved := sampleEvent("")
	approved.RawStatus = "approved"
	approved.OfferID = ""
	out, err := p.Apply(ctx, approved)
	if err != nil {
		t.Fatal(err)
	}
	if len(linker.hints) != 2 || linker.hints[1] != "VID1" {
		t.Fatalf("linker hints = %v, want [VID1 VID1]", linker.hints)
	}
	if out.Attribution == nil || out.Attribution.ConversionStatus != models.StatusApproved {
		t.Fatalf("attribution = %+v, want approved row", out.Attribution)
	}
	if last := pub.msgs[len(pub.msgs)-1]; last.OfferID != "42" {
		t.Errorf("published offer_id = %q, want stored 42", last.OfferID)
	}
}

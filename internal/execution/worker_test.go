package execution

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/affiliateops/backend/internal/models"
)

type stubSyncer struct {
	allTriggers []string
	networks    []models.NetworkName
	networkErr  error
}

func (s *stubSyncer) SyncAll(_ context.Context, trigger string) *models.SyncRun {
	s.allTriggers = append(s.allTriggers, trigger)
	return &models.SyncRun{ID: uuid.New(), Trigger: trigger}
}

func (s *stubSyncer) SyncNetwork(_ context.Context, n models.NetworkName, trigger string) (*models.SyncRun, error) {
	if s.networkErr != nil {
		return nil, s.networkErr
	}
	s.networks = append(s.networks, n)
	return &models.SyncRun{ID: uuid.New(), Trigger: trigger}, nil
}

func newJob(args SyncConversionsArgs) *river.Job[SyncConversionsArgs] {
	return &river.Job[SyncConversionsArgs]{JobRow: &rivertype.JobRow{ID: 1}, Args: args}
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWork_DefaultsToScheduledFullSync(t *testing.T) {
	s := &stubSyncer{}
	w := NewSyncConversionsWorker(s, 0, quietLogger())
	if err := w.Work(context.Background(), newJob(SyncConversionsArgs{})); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(s.allTriggers) != 1 || s.allTriggers[0] != models.SyncTriggerSchedule {
		t.Fatalf("triggers = %v", s.allTriggers)
	}
	if w.Timeout(nil) != DefaultSyncTimeout {
		t.Errorf("timeout = %v", w.Timeout(nil))
	}
}

func TestWork_SingleNetwork(t *testing.T) {
	s := &stubSyncer{}
	w := NewSyncConversionsWorker(s, 0, quietLogger())
	args := SyncConversionsArgs{Network: "PartnerStack", Trigger: models.SyncTriggerManual}
	if err := w.Work(context.Background(), newJob(args)); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(s.networks) != 1 || s.networks[0] != models.NetworkPartnerStack {
		t.Fatalf("networks = %v", s.networks)
	}
}

func TestWork_UnknownNetworkCancels(t *testing.T) {
	w := NewSyncConversionsWorker(&stubSyncer{}, 0, quietLogger())
	err := w.Work(context.Background(), newJob(SyncConversionsArgs{Network: "cj"}))
	if err == nil {
		t.Fatal("expected cancel error")
	}
	w = NewSyncConversionsWorker(&stubSyncer{networkErr: errors.New("not a sync network")}, 0, quietLogger())
	if err := w.Work(context.Background(), newJob(SyncConversionsArgs{Network: "manual-test"})); err == nil {
		t.Fatal("expected cancel error for non-sync network")
	}
}

func TestKind(t *testing.T) {
	if (SyncConversionsArgs{}).Kind() != "sync_conversions" {
		t.Fatal("kind changed; existing queued jobs would be orphaned")
	}
}

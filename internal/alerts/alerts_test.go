package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/affiliateops/backend/internal/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramNotify(t *testing.T) {
	fs := &fakeSender{}
	tg := &Telegram{bot: fs, chatID: 42}
	if err := tg.Notify(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if len(fs.sent) != 1 || fs.sent[0].ChatID != 42 || fs.sent[0].Text != "hello" {
		t.Fatalf("unexpected messages %+v", fs.sent)
	}

	fs.err = errors.New("403")
	if err := tg.Notify(context.Background(), "again"); err == nil {
		t.Fatal("expected send error")
	}
}

func TestSyncFailures(t *testing.T) {
	run := &models.SyncRun{ID: uuid.New(), Trigger: models.SyncTriggerSchedule, Results: []models.ProviderResult{
		{Network: models.NetworkImpact, State: models.SyncStateSucceeded},
		{Network: models.NetworkAwin, State: models.SyncStateFailed, Error: "awin unavailable: status=503"},
	}}
	text := SyncFailures(run)
	if !strings.Contains(text, "1 network(s) failed") || !strings.Contains(text, "awin: awin unavailable") {
		t.Fatalf("unexpected text %q", text)
	}
	if strings.Contains(text, "impact") {
		t.Fatalf("succeeded network should not be listed: %q", text)
	}

	run.Results = run.Results[:1]
	if SyncFailures(run) != "" {
		t.Fatal("no failures should produce no alert")
	}
}

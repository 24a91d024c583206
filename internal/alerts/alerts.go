// Package alerts sends operator notifications for failures that would otherwise
// only be visible in logs.
package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/affiliateops/backend/internal/models"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Noop drops every alert. Used when Telegram is not configured.
type Noop struct{}

func (Noop) Notify(context.Context, string) error { return nil }

// SyncFailures describes the failed networks of a run, or "" when none failed.
func SyncFailures(run *models.SyncRun) string {
	failed := run.Failed()
	if len(failed) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Conversion sync %s (%s): %d network(s) failed\n", run.ID, run.Trigger, len(failed))
	for _, res := range failed {
		fmt.Fprintf(&b, "- %s: %s (imported %d, updated %d before failure)\n", res.Network, res.Error, res.Imported, res.Updated)
	}
	return strings.TrimRight(b.String(), "\n")
}

// WebhookFailure describes a postback that was acknowledged but not stored.
func WebhookFailure(network models.NetworkName, txID string, err error) string {
	return fmt.Sprintf("Webhook for %s transaction %q acknowledged but not stored: %v", network, txID, err)
}

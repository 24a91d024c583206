// Package providers polls affiliate networks for recent conversions and maps each
// network's wire format onto models.ConversionEvent.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/settings"
)

// DefaultWindowDays is the trailing window polled when none is configured.
// Networks report conversions with lag, so a week is re-read every run.
const DefaultWindowDays = 7

// Adapter polls one network. Raw network shapes never leave the adapter.
type Adapter interface {
	Network() models.NetworkName
	Sync(ctx context.Context, window Window) ([]models.ConversionEvent, error)
}

// Window is the [Start, End) range of conversion dates to poll.
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns the window covering the last days days up to now.
func TrailingWindow(now time.Time, days int) Window {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now = now.UTC()
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

// Options configures an adapter. Zero values select production defaults.
type Options struct {
	BaseURL string
	Client  ClientOptions
}

func baseURLOrDefault(baseURL, fallback string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return fallback
	}
	return baseURL
}

// loadCredentials reads <network>_<name> for each name. A missing or blank
// setting yields ErrCredentialsMissing; any other store failure is returned as is.
func loadCredentials(ctx context.Context, store settings.Reader, network models.NetworkName, names ...string) (map[string]string, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no credential store", ErrCredentialsMissing)
	}
	creds := make(map[string]string, len(names))
	for _, name := range names {
		key := string(network) + "_" + name
		value, err := store.GetSetting(ctx, key)
		if errors.Is(err, settings.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialsMissing, key)
		}
		if err != nil {
			return nil, fmt.Errorf("read setting %s: %w", key, err)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("%w: %s", ErrCredentialsMissing, key)
		}
		creds[name] = value
	}
	return creds, nil
}

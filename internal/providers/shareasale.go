package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/settings"
)

const (
	shareASaleDefaultBaseURL = "https://api.shareasale.com"
	shareASaleAPIVersion     = "2.3"
	shareASaleAction         = "activity"
)

// ShareASaleAdapter reads the legacy ShareASale activity export, which is CSV
// rather than JSON.
// Credentials: shareasale_legacy_affiliate_id, shareasale_legacy_api_token,
// shareasale_legacy_api_secret.
type ShareASaleAdapter struct {
	creds   settings.Reader
	client  *apiClient
	baseURL string
	now     func() time.Time
}

func NewShareASaleAdapter(creds settings.Reader, opts Options) *ShareASaleAdapter {
	return &ShareASaleAdapter{
		creds:   creds,
		client:  newAPIClient(models.NetworkShareASaleLegacy, opts.Client),
		baseURL: baseURLOrDefault(opts.BaseURL, shareASaleDefaultBaseURL),
		now:     time.Now,
	}
}

func (*ShareASaleAdapter) Network() models.NetworkName { return models.NetworkShareASaleLegacy }

func (a *ShareASaleAdapter) Sync(ctx context.Context, window Window) ([]models.ConversionEvent, error) {
	creds, err := loadCredentials(ctx, a.creds, models.NetworkShareASaleLegacy, "affiliate_id", "api_token", "api_secret")
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("affiliateId", creds["affiliate_id"])
	q.Set("token", creds["api_token"])
	q.Set("version", shareASaleAPIVersion)
	q.Set("action", shareASaleAction)
	q.Set("dateStart", window.Start.UTC().Format("01/02/2006"))
	q.Set("dateEnd", window.End.UTC().Format("01/02/2006"))
	q.Set("format", "csv")
	endpoint := a.baseURL + "/x.cfm?" + q.Encode()

	stamp := a.now().UTC().Format(http.TimeFormat)
	header := http.Header{}
	header.Set("x-ShareASale-Date", stamp)
	header.Set("x-ShareASale-Authentication", shareASaleSignature(creds["api_token"], stamp, creds["api_secret"]))

	body, err := a.client.get(ctx, endpoint, header)
	if err != nil {
		return nil, err
	}
	raw := string(body)
	// The export reports API errors in a 200 body.
	if strings.HasPrefix(strings.TrimSpace(raw), "Error") {
		return nil, unavailable(models.NetworkShareASaleLegacy, http.StatusOK, fmt.Errorf("%s", firstLine(raw)))
	}

	var events []models.ConversionEvent
	for _, row := range ParseDelimitedTable(raw) {
		if strings.TrimSpace(row["transID"]) == "" {
			continue
		}
		events = append(events, shareASaleRowToEvent(row))
	}
	return events, nil
}

func shareASaleRowToEvent(row map[string]string) models.ConversionEvent {
	currency := row["currency"]
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return models.ConversionEvent{
		Network:              models.NetworkShareASaleLegacy,
		NetworkTransactionID: row["transID"],
		OfferID:              row["merchantID"],
		OfferName:            row["merchantOrganization"],
		Payout:               nullAmount(row["commission"]),
		Currency:             currency,
		RawStatus:            strings.ToLower(row["status"]),
		ClickDate:            optionalTimestamp(row["clickDate"]),
		ConversionDate:       optionalTimestamp(row["transDate"]),
		SubID1:               row["afftrack"],
		SubID2:               row["afftrack2"],
		SubID3:               row["afftrack3"],
	}
}

// shareASaleSignature is the hex SHA-256 of token:date:action:secret.
func shareASaleSignature(token, date, secret string) string {
	sum := sha256.Sum256([]byte(token + ":" + date + ":" + shareASaleAction + ":" + secret))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

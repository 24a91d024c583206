package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/settings"
)

const (
	awinDefaultBaseURL = "https://api.awin.com"
	// awinMaxRange is the widest date range the transactions endpoint accepts.
	awinMaxRange = 31 * 24 * time.Hour
)

// AwinAdapter reads publisher transactions from the Awin API.
// Credentials: awin_publisher_id, awin_api_token.
type AwinAdapter struct {
	creds   settings.Reader
	client  *apiClient
	baseURL string
}

func NewAwinAdapter(creds settings.Reader, opts Options) *AwinAdapter {
	return &AwinAdapter{
		creds:   creds,
		client:  newAPIClient(models.NetworkAwin, opts.Client),
		baseURL: baseURLOrDefault(opts.BaseURL, awinDefaultBaseURL),
	}
}

func (*AwinAdapter) Network() models.NetworkName { return models.NetworkAwin }

type awinAmount struct {
	Amount   flexString `json:"amount"`
	Currency string     `json:"currency"`
}

type awinTransaction struct {
	ID               flexString `json:"id"`
	AdvertiserID     flexString `json:"advertiserId"`
	AdvertiserName   string     `json:"advertiserName"`
	CommissionStatus string     `json:"commissionStatus"`
	CommissionAmount awinAmount `json:"commissionAmount"`
	ClickDate        string     `json:"clickDate"`
	TransactionDate  string     `json:"transactionDate"`
	ClickRefs        struct {
		ClickRef  string `json:"clickRef"`
		ClickRef2 string `json:"clickRef2"`
		ClickRef3 string `json:"clickRef3"`
	} `json:"clickRefs"`
}

func (a *AwinAdapter) Sync(ctx context.Context, window Window) ([]models.ConversionEvent, error) {
	creds, err := loadCredentials(ctx, a.creds, models.NetworkAwin, "publisher_id", "api_token")
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Authorization", "Bearer "+creds["api_token"])

	var events []models.ConversionEvent
	for _, chunk := range splitWindow(window, awinMaxRange) {
		q := url.Values{}
		q.Set("startDate", chunk.Start.UTC().Format("2006-01-02T15:04:05"))
		q.Set("endDate", chunk.End.UTC().Format("2006-01-02T15:04:05"))
		q.Set("timezone", "UTC")
		q.Set("dateType", "transaction")
		endpoint := fmt.Sprintf("%s/publishers/%s/transactions/?%s", a.baseURL, url.PathEscape(creds["publisher_id"]), q.Encode())

		body, err := a.client.get(ctx, endpoint, header)
		if err != nil {
			return nil, err
		}
		var txns []awinTransaction
		if err := json.Unmarshal(body, &txns); err != nil {
			return nil, unavailable(models.NetworkAwin, 0, fmt.Errorf("decode transactions: %w", err))
		}
		for _, t := range txns {
			events = append(events, t.toEvent())
		}
	}
	return events, nil
}

func (t awinTransaction) toEvent() models.ConversionEvent {
	return models.ConversionEvent{
		Network:              models.NetworkAwin,
		NetworkTransactionID: t.ID.String(),
		OfferID:              t.AdvertiserID.String(),
		OfferName:            t.AdvertiserName,
		Payout:               nullAmount(t.CommissionAmount.Amount.String()),
		Currency:             t.CommissionAmount.Currency,
		RawStatus:            t.CommissionStatus,
		ClickDate:            optionalTimestamp(t.ClickDate),
		ConversionDate:       optionalTimestamp(t.TransactionDate),
		SubID1:               t.ClickRefs.ClickRef,
		SubID2:               t.ClickRefs.ClickRef2,
		SubID3:               t.ClickRefs.ClickRef3,
	}
}

// splitWindow cuts w into consecutive chunks no longer than max.
func splitWindow(w Window, max time.Duration) []Window {
	if !w.End.After(w.Start) {
		return []Window{w}
	}
	var out []Window
	for start := w.Start; start.Before(w.End); start = start.Add(max) {
		end := start.Add(max)
		if end.After(w.End) {
			end = w.End
		}
		out = append(out, Window{Start: start, End: end})
	}
	return out
}

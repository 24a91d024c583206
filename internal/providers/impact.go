package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/settings"
)

const (
	impactDefaultBaseURL = "https://api.impact.com"
	impactPageSize       = 1000
	impactMaxPages       = 500
)

// ImpactAdapter reads actions from the Impact Mediapartners API.
// Credentials: impact_account_sid, impact_auth_token.
type ImpactAdapter struct {
	creds   settings.Reader
	client  *apiClient
	baseURL string
}

func NewImpactAdapter(creds settings.Reader, opts Options) *ImpactAdapter {
	return &ImpactAdapter{
		creds:   creds,
		client:  newAPIClient(models.NetworkImpact, opts.Client),
		baseURL: baseURLOrDefault(opts.BaseURL, impactDefaultBaseURL),
	}
}

func (*ImpactAdapter) Network() models.NetworkName { return models.NetworkImpact }

type impactActionsPage struct {
	Actions  []impactAction `json:"Actions"`
	Page     flexString     `json:"@page"`
	NumPages flexString     `json:"@numpages"`
}

type impactAction struct {
	ID            flexString `json:"Id"`
	CampaignID    flexString `json:"CampaignId"`
	CampaignName  string     `json:"CampaignName"`
	Payout        flexString `json:"Payout"`
	Currency      string     `json:"Currency"`
	State         string     `json:"State"`
	EventDate     string     `json:"EventDate"`
	ReferringDate string     `json:"ReferringDate"`
	SharedID      string     `json:"SharedId"`
	SubID1        string     `json:"SubId1"`
	SubID2        string     `json:"SubId2"`
	SubID3        string     `json:"SubId3"`
}

func (a *ImpactAdapter) Sync(ctx context.Context, window Window) ([]models.ConversionEvent, error) {
	creds, err := loadCredentials(ctx, a.creds, models.NetworkImpact, "account_sid", "auth_token")
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Authorization", basicAuth(creds["account_sid"], creds["auth_token"]))

	var events []models.ConversionEvent
	for page := 1; page <= impactMaxPages; page++ {
		q := url.Values{}
		q.Set("ActionDateStart", window.Start.UTC().Format("2006-01-02T15:04:05Z"))
		q.Set("ActionDateEnd", window.End.UTC().Format("2006-01-02T15:04:05Z"))
		q.Set("PageSize", strconv.Itoa(impactPageSize))
		q.Set("Page", strconv.Itoa(page))
		endpoint := fmt.Sprintf("%s/Mediapartners/%s/Actions?%s", a.baseURL, url.PathEscape(creds["account_sid"]), q.Encode())

		body, err := a.client.get(ctx, endpoint, header)
		if err != nil {
			return nil, err
		}
		var resp impactActionsPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, unavailable(models.NetworkImpact, 0, fmt.Errorf("decode actions page %d: %w", page, err))
		}
		for _, action := range resp.Actions {
			events = append(events, action.toEvent())
		}
		numPages, _ := strconv.Atoi(resp.NumPages.String())
		if len(resp.Actions) == 0 || page >= numPages {
			break
		}
	}
	return events, nil
}

func (a impactAction) toEvent() models.ConversionEvent {
	return models.ConversionEvent{
		Network:              models.NetworkImpact,
		NetworkTransactionID: a.ID.String(),
		OfferID:              a.CampaignID.String(),
		OfferName:            a.CampaignName,
		Payout:               nullAmount(a.Payout.String()),
		Currency:             a.Currency,
		RawStatus:            a.State,
		ClickDate:            optionalTimestamp(a.ReferringDate),
		ConversionDate:       optionalTimestamp(a.EventDate),
		SubID1:               firstNonEmpty(a.SharedID, a.SubID1),
		SubID2:               a.SubID2,
		SubID3:               a.SubID3,
	}
}

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/settings"
)

const (
	partnerStackDefaultBaseURL = "https://api.partnerstack.com"
	partnerStackPageSize       = 250
	partnerStackMaxPages       = 400
)

// PartnerStackAdapter reads rewards from the PartnerStack partner API.
// Credentials: partnerstack_api_key.
type PartnerStackAdapter struct {
	creds   settings.Reader
	client  *apiClient
	baseURL string
}

func NewPartnerStackAdapter(creds settings.Reader, opts Options) *PartnerStackAdapter {
	return &PartnerStackAdapter{
		creds:   creds,
		client:  newAPIClient(models.NetworkPartnerStack, opts.Client),
		baseURL: baseURLOrDefault(opts.BaseURL, partnerStackDefaultBaseURL),
	}
}

func (*PartnerStackAdapter) Network() models.NetworkName { return models.NetworkPartnerStack }

type partnerStackRewardsPage struct {
	Data struct {
		Items   []partnerStackReward `json:"items"`
		HasMore bool                 `json:"has_more"`
	} `json:"data"`
}

type partnerStackReward struct {
	Key            string     `json:"key"`
	Amount         flexString `json:"amount"`
	Currency       string     `json:"currency"`
	RewardStatus   string     `json:"reward_status"`
	CreatedAt      int64      `json:"created_at"`
	Description    string     `json:"description"`
	Offer          string     `json:"offer"`
	PartnershipKey string     `json:"partnership_key"`
	Metadata       struct {
		SubID  string `json:"sub_id"`
		SubID2 string `json:"sub_id_2"`
		SubID3 string `json:"sub_id_3"`
	} `json:"metadata"`
}

func (a *PartnerStackAdapter) Sync(ctx context.Context, window Window) ([]models.ConversionEvent, error) {
	creds, err := loadCredentials(ctx, a.creds, models.NetworkPartnerStack, "api_key")
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Authorization", "Bearer "+creds["api_key"])

	var events []models.ConversionEvent
	cursor := ""
	for page := 0; page < partnerStackMaxPages; page++ {
		q := url.Values{}
		q.Set("min_created", strconv.FormatInt(window.Start.UnixMilli(), 10))
		q.Set("max_created", strconv.FormatInt(window.End.UnixMilli(), 10))
		q.Set("limit", strconv.Itoa(partnerStackPageSize))
		if cursor != "" {
			q.Set("starting_after", cursor)
		}
		body, err := a.client.get(ctx, a.baseURL+"/api/v2/rewards?"+q.Encode(), header)
		if err != nil {
			return nil, err
		}
		var resp partnerStackRewardsPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, unavailable(models.NetworkPartnerStack, 0, fmt.Errorf("decode rewards: %w", err))
		}
		for _, r := range resp.Data.Items {
			events = append(events, r.toEvent())
		}
		if !resp.Data.HasMore || len(resp.Data.Items) == 0 {
			break
		}
		cursor = resp.Data.Items[len(resp.Data.Items)-1].Key
	}
	return events, nil
}

func (r partnerStackReward) toEvent() models.ConversionEvent {
	ev := models.ConversionEvent{
		Network:              models.NetworkPartnerStack,
		NetworkTransactionID: r.Key,
		OfferID:              r.PartnershipKey,
		OfferName:            firstNonEmpty(r.Offer, r.Description),
		Payout:               centsToAmount(r.Amount.String()),
		Currency:             r.Currency,
		RawStatus:            r.RewardStatus,
		SubID1:               r.Metadata.SubID,
		SubID2:               r.Metadata.SubID2,
		SubID3:               r.Metadata.SubID3,
	}
	if r.CreatedAt > 0 {
		created := time.UnixMilli(r.CreatedAt).UTC()
		ev.ConversionDate = &created
	}
	return ev
}

// centsToAmount converts an integer minor-unit amount into a decimal.
func centsToAmount(s string) decimal.NullDecimal {
	cents, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(cents).Shift(-2))
}

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/settings"
)

var testWindow = Window{
	Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
}

func fastOptions(baseURL string) Options {
	return Options{
		BaseURL: baseURL,
		Client:  ClientOptions{Timeout: 2 * time.Second, MaxRetries: 0, BaseDelay: time.Millisecond},
	}
}

// ---------------------------------------------------------------------------
// Impact
// ---------------------------------------------------------------------------

func TestImpactAdapter_PagesAndMaps(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "SID1" || pass != "TOKEN1" {
			t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
		}
		if r.URL.Path != "/Mediapartners/SID1/Actions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		page := r.URL.Query().Get("Page")
		pages = append(pages, page)
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			fmt.Fprint(w, `{"@page":"1","@numpages":"2","Actions":[
				{"Id":"A-1","CampaignId":1234,"CampaignName":"Shoes","Payout":"25.00","Currency":"USD","State":"APPROVED",
				 "EventDate":"2024-03-02T10:00:00-05:00","ReferringDate":"2024-03-01T09:00:00Z","SharedId":"vid-1"}]}`)
		default:
			fmt.Fprint(w, `{"@page":"2","@numpages":"2","Actions":[
				{"Id":"A-2","CampaignId":"99","Payout":3.5,"State":"PENDING","SubId1":"vid-2"}]}`)
		}
	}))
	defer srv.Close()

	creds := settings.Map{"impact_account_sid": "SID1", "impact_auth_token": "TOKEN1"}
	events, err := NewImpactAdapter(creds, fastOptions(srv.URL)).Sync(context.Background(), testWindow)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if strings.Join(pages, ",") != "1,2" {
		t.Errorf("pages requested = %v", pages)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0]
	if first.Network != models.NetworkImpact || first.NetworkTransactionID != "A-1" || first.OfferID != "1234" {
		t.Errorf("first event identity = %+v", first)
	}
	if !first.Payout.Valid || first.Payout.Decimal.StringFixed(2) != "25.00" {
		t.Errorf("first payout = %v", first.Payout)
	}
	if first.SubID1 != "vid-1" || first.RawStatus != "APPROVED" {
		t.Errorf("first sub id/status = %q/%q", first.SubID1, first.RawStatus)
	}
	if first.ConversionDate == nil || !first.ConversionDate.Equal(time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("first conversion date = %v", first.ConversionDate)
	}
	if events[1].SubID1 != "vid-2" || events[1].Payout.Decimal.String() != "3.5" {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestImpactAdapter_CredentialsMissing(t *testing.T) {
	_, err := NewImpactAdapter(settings.Map{"impact_account_sid": "SID1"}, Options{}).Sync(context.Background(), testWindow)
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("expected ErrCredentialsMissing, got %v", err)
	}
}

func TestImpactAdapter_BlankCredentialIsMissing(t *testing.T) {
	creds := settings.Map{"impact_account_sid": "SID1", "impact_auth_token": "  "}
	_, err := NewImpactAdapter(creds, Options{}).Sync(context.Background(), testWindow)
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("expected ErrCredentialsMissing, got %v", err)
	}
}

func TestImpactAdapter_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	creds := settings.Map{"impact_account_sid": "SID1", "impact_auth_token": "TOKEN1"}
	_, err := NewImpactAdapter(creds, fastOptions(srv.URL)).Sync(context.Background(), testWindow)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	var pu *ProviderUnavailableError
	if !errors.As(err, &pu) || pu.StatusCode != http.StatusBadGateway || pu.Network != models.NetworkImpact {
		t.Fatalf("unexpected error detail: %#v", err)
	}
}

// ---------------------------------------------------------------------------
// Awin
// ---------------------------------------------------------------------------

func TestAwinAdapter_MapsTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer AWTOKEN" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/publishers/777/transactions/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("timezone") != "UTC" {
			t.Errorf("timezone = %q", r.URL.Query().Get("timezone"))
		}
		json.NewEncoder(w).Encode([]map[string]any{{
			"id":               98765,
			"advertiserId":     4321,
			"advertiserName":   "Gadget Store",
			"commissionStatus": "approved",
			"commissionAmount": map[string]any{"amount": 7.25, "currency": "GBP"},
			"transactionDate":  "2024-03-03T12:00:00",
			"clickRefs":        map[string]any{"clickRef": "vid-9", "clickRef2": "yt"},
		}})
	}))
	defer srv.Close()

	creds := settings.Map{"awin_publisher_id": "777", "awin_api_token": "AWTOKEN"}
	events, err := NewAwinAdapter(creds, fastOptions(srv.URL)).Sync(context.Background(), testWindow)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.NetworkTransactionID != "98765" || ev.OfferID != "4321" || ev.OfferName != "Gadget Store" {
		t.Errorf("identity = %+v", ev)
	}
	if ev.Currency != "GBP" || ev.Payout.Decimal.StringFixed(2) != "7.25" {
		t.Errorf("money = %v %s", ev.Payout, ev.Currency)
	}
	if ev.SubID1 != "vid-9" || ev.SubID2 != "yt" {
		t.Errorf("sub ids = %q %q", ev.SubID1, ev.SubID2)
	}
}

func TestSplitWindow(t *testing.T) {
	w := Window{Start: testWindow.Start, End: testWindow.Start.Add(70 * 24 * time.Hour)}
	chunks := splitWindow(w, awinMaxRange)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if !chunks[0].Start.Equal(w.Start) || !chunks[2].End.Equal(w.End) {
		t.Errorf("chunks do not cover window: %+v", chunks)
	}
	for i := 1; i < len(chunks); i++ {
		if !chunks[i].Start.Equal(chunks[i-1].End) {
			t.Errorf("gap between chunk %d and %d", i-1, i)
		}
	}
}

// ---------------------------------------------------------------------------
// ShareASale (legacy CSV)
// ---------------------------------------------------------------------------

func TestShareASaleAdapter_ParsesCSVExport(t *testing.T) {
	fixed := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("affiliateId") != "555" || q.Get("action") != "activity" || q.Get("dateStart") != "03/01/2024" {
			t.Errorf("query = %v", q)
		}
		stamp := fixed.Format(http.TimeFormat)
		if r.Header.Get("x-ShareASale-Date") != stamp {
			t.Errorf("date header = %q", r.Header.Get("x-ShareASale-Date"))
		}
		if r.Header.Get("x-ShareASale-Authentication") != shareASaleSignature("SATOKEN", stamp, "SASECRET") {
			t.Errorf("signature mismatch")
		}
		fmt.Fprint(w, "transID,merchantID,merchantOrganization,commission,transDate,clickDate,status,afftrack\n"+
			"T-1,88,Outdoor Co,$12.40,03/02/2024 10:15:00 AM,03/01/2024,Void,vid-3\n"+
			"broken line without enough columns\n"+
			"\n"+
			"T-2,88,Outdoor Co,4.00,03/03/2024,,Approved,\n")
	}))
	defer srv.Close()

	creds := settings.Map{
		"shareasale_legacy_affiliate_id": "555",
		"shareasale_legacy_api_token":    "SATOKEN",
		"shareasale_legacy_api_secret":   "SASECRET",
	}
	a := NewShareASaleAdapter(creds, fastOptions(srv.URL))
	a.now = func() time.Time { return fixed }

	events, err := a.Sync(context.Background(), testWindow)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].NetworkTransactionID != "T-1" || events[0].Payout.Decimal.StringFixed(2) != "12.40" {
		t.Errorf("event 0 = %+v", events[0])
	}
	if got := Normalize(events[0].Network, events[0].RawStatus); got != models.StatusRejected {
		t.Errorf("void normalized to %s", got)
	}
	if events[0].Currency != models.DefaultCurrency || events[0].SubID1 != "vid-3" {
		t.Errorf("event 0 currency/sub = %q/%q", events[0].Currency, events[0].SubID1)
	}
	if events[1].ClickDate != nil {
		t.Errorf("expected nil click date, got %v", events[1].ClickDate)
	}
}

func TestShareASaleAdapter_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Error Code 4031 - Invalid token\n")
	}))
	defer srv.Close()

	creds := settings.Map{
		"shareasale_legacy_affiliate_id": "555",
		"shareasale_legacy_api_token":    "SATOKEN",
		"shareasale_legacy_api_secret":   "SASECRET",
	}
	_, err := NewShareASaleAdapter(creds, fastOptions(srv.URL)).Sync(context.Background(), testWindow)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// PartnerStack
// ---------------------------------------------------------------------------

func TestPartnerStackAdapter_CentsAndCursor(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer PSKEY" {
			t.Errorf("Authorization = %q", got)
		}
		cursor := r.URL.Query().Get("starting_after")
		cursors = append(cursors, cursor)
		if cursor == "" {
			fmt.Fprint(w, `{"data":{"has_more":true,"items":[
				{"key":"rwd_1","amount":5000,"currency":"USD","reward_status":"paid","created_at":1709460000000,
				 "offer":"Pro Plan","partnership_key":"part_1","metadata":{"sub_id":"vid-5"}}]}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"has_more":false,"items":[
			{"key":"rwd_2","amount":199,"currency":"USD","reward_status":"hold","partnership_key":"part_1"}]}}`)
	}))
	defer srv.Close()

	events, err := NewPartnerStackAdapter(settings.Map{"partnerstack_api_key": "PSKEY"}, fastOptions(srv.URL)).
		Sync(context.Background(), testWindow)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if strings.Join(cursors, ",") != ",rwd_1" {
		t.Errorf("cursors = %v", cursors)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if got := events[0].Payout.Decimal.StringFixed(2); got != "50.00" {
		t.Errorf("5000 cents stored as %s, want 50.00", got)
	}
	if events[0].SubID1 != "vid-5" || events[0].OfferName != "Pro Plan" || events[0].ConversionDate == nil {
		t.Errorf("event 0 = %+v", events[0])
	}
	if got := events[1].Payout.Decimal.StringFixed(2); got != "1.99" {
		t.Errorf("199 cents stored as %s", got)
	}
	if Normalize(models.NetworkPartnerStack, events[1].RawStatus) != models.StatusPending {
		t.Errorf("hold should normalize to pending")
	}
}

func TestCentsToAmount_Invalid(t *testing.T) {
	if got := centsToAmount("12.5"); got.Valid {
		t.Errorf("expected invalid amount, got %v", got)
	}
}

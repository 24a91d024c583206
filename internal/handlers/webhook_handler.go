package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/affiliateops/backend/internal/alerts"
	"github.com/affiliateops/backend/internal/ingest"
	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/providers"
)

const maxWebhookBody = 64 << 10

// Postback field names. Networks send them with this exact casing.
const (
	fieldTransactionID = "transactionId"
	fieldCampaignID    = "campaignId"
	fieldCampaignName  = "campaignName"
	fieldStatus        = "status"
	fieldStatusDetail  = "statusDetail"
	fieldPayout        = "payout"
	fieldAmount        = "amount"
	fieldCurrency      = "currency"
	fieldEventDate     = "eventDate"
	fieldSharedID      = "sharedId"
)

var requiredFields = []string{fieldTransactionID, fieldCampaignID, fieldStatus, fieldPayout}

// ConversionApplier is the ingest path. *ingest.Pipeline implements it.
type ConversionApplier interface {
	Apply(ctx context.Context, ev models.ConversionEvent) (ingest.Outcome, error)
}

// WebhookHandler serves /api/v1/webhooks/conversions[/{network}].
type WebhookHandler struct {
	Pipeline ConversionApplier
	// DefaultNetwork is used when the route carries no {network}.
	DefaultNetwork models.NetworkName
	// Secret, when set, must match ?token= or the X-Webhook-Token header.
	Secret string
	Alerts alerts.Notifier
	Logger *slog.Logger
}

type webhookResponse struct {
	Success      bool   `json:"success"`
	ConversionID string `json:"conversionId,omitempty"`
	Message      string `json:"message,omitempty"`
}

// webhookResult is the inner outcome of a postback, used for logging and alerts.
// It never decides the HTTP status.
type webhookResult struct {
	ConversionID uuid.UUID
	Created      bool
	Err          error
}

// requestError is a malformed postback, rejected before any ledger write.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// ReceiveConversion handles GET (query) and POST (JSON, form or query) postbacks.
//
// Once a postback parses, the response is always 200: networks retry on non-2xx
// and a retry storm would only re-deliver the same transaction. Internal failures
// are logged and alerted instead of surfaced to the caller.
func (h *WebhookHandler) ReceiveConversion(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, `{"error":"invalid webhook token"}`, http.StatusUnauthorized)
		return
	}
	network, err := h.network(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{Success: false, Message: err.Error()})
		return
	}
	fields, err := readFields(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{Success: false, Message: err.Error()})
		return
	}
	ev, err := eventFromFields(network, fields)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{Success: false, Message: err.Error()})
		return
	}

	result := h.apply(r.Context(), ev, fields)
	acknowledge(w, result)
}

// apply runs the ingest path and records failures. Nothing here writes to w.
func (h *WebhookHandler) apply(ctx context.Context, ev models.ConversionEvent, fields map[string]string) webhookResult {
	log := h.logger().With("network", ev.Network, "transaction_id", ev.NetworkTransactionID)
	out, err := h.Pipeline.Apply(ctx, ev)
	if err != nil {
		log.Error("webhook conversion not stored", "status", ev.RawStatus, "status_detail", fields[fieldStatusDetail], "error", err)
		if h.Alerts != nil {
			if alertErr := h.Alerts.Notify(context.WithoutCancel(ctx), alerts.WebhookFailure(ev.Network, ev.NetworkTransactionID, err)); alertErr != nil {
				log.Warn("webhook failure alert not sent", "error", alertErr)
			}
		}
		return webhookResult{Err: err}
	}
	log.Info("webhook conversion stored",
		"conversion_id", out.ID,
		"created", out.Created,
		"status", out.Status,
		"previous_status", out.PreviousStatus,
		"sale_amount", fields[fieldAmount],
		"attributed", out.Attribution != nil,
	)
	return webhookResult{ConversionID: out.ID, Created: out.Created}
}

// acknowledge maps the inner result to the caller-facing body. The status is 200
// in every case.
func acknowledge(w http.ResponseWriter, res webhookResult) {
	if res.Err != nil {
		writeJSON(w, http.StatusOK, webhookResponse{Success: false, Message: "conversion not recorded"})
		return
	}
	msg := "updated"
	if res.Created {
		msg = "created"
	}
	writeJSON(w, http.StatusOK, webhookResponse{Success: true, ConversionID: res.ConversionID.String(), Message: msg})
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.Secret == "" {
		return true
	}
	token := r.Header.Get("X-Webhook-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.Secret)) == 1
}

func (h *WebhookHandler) network(r *http.Request) (models.NetworkName, error) {
	raw := r.PathValue("network")
	if raw == "" {
		if h.DefaultNetwork == "" {
			return "", &requestError{msg: "network is required"}
		}
		return h.DefaultNetwork, nil
	}
	n, ok := models.ParseNetwork(raw)
	if !ok {
		return "", &requestError{msg: fmt.Sprintf("unknown network %q", raw)}
	}
	return n, nil
}

func (h *WebhookHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// readFields merges query parameters with a JSON or form body; body values win.
func readFields(r *http.Request) (map[string]string, error) {
	fields := firstValues(r.URL.Query())
	if r.Method != http.MethodPost || r.Body == nil {
		return fields, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, &requestError{msg: "unreadable body"}
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fields, nil
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" || strings.HasPrefix(trimmed, "{") {
		jsonFields, err := decodeJSONFields(body)
		if err != nil {
			return nil, &requestError{msg: "invalid JSON body"}
		}
		for k, v := range jsonFields {
			fields[k] = v
		}
		return fields, nil
	}
	form, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, &requestError{msg: "invalid form body"}
	}
	for k, v := range firstValues(form) {
		fields[k] = v
	}
	return fields, nil
}

func firstValues(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// decodeJSONFields flattens a JSON object's scalar members to strings.
func decodeJSONFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			out[k] = v
		case json.Number:
			out[k] = v.String()
		case bool:
			out[k] = strconv.FormatBool(v)
		}
	}
	return out, nil
}

func eventFromFields(network models.NetworkName, fields map[string]string) (models.ConversionEvent, error) {
	for _, name := range requiredFields {
		if strings.TrimSpace(fields[name]) == "" {
			return models.ConversionEvent{}, &requestError{msg: "missing required field: " + name}
		}
	}
	payout, err := providers.ParseAmount(fields[fieldPayout])
	if err != nil {
		return models.ConversionEvent{}, &requestError{msg: "invalid payout"}
	}
	ev := models.ConversionEvent{
		Network:              network,
		NetworkTransactionID: strings.TrimSpace(fields[fieldTransactionID]),
		OfferID:              strings.TrimSpace(fields[fieldCampaignID]),
		OfferName:            strings.TrimSpace(fields[fieldCampaignName]),
		Payout:               decimal.NewNullDecimal(payout),
		Currency:             strings.TrimSpace(fields[fieldCurrency]),
		RawStatus:            strings.TrimSpace(fields[fieldStatus]),
		SubID1:               strings.TrimSpace(fields[fieldSharedID]),
	}
	if raw := fields[fieldEventDate]; raw != "" {
		ts, err := providers.ParseTimestamp(raw)
		if err != nil {
			return models.ConversionEvent{}, &requestError{msg: "invalid eventDate"}
		}
		ev.ConversionDate = ts
	}
	return ev, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package dashboard serves the operator reporting API and manual ingestion.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/affiliateops/backend/internal/ingest"
	"github.com/affiliateops/backend/internal/ledger"
	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/providers"
	"github.com/affiliateops/backend/internal/repository"
	"github.com/affiliateops/backend/internal/services"
)

const maxBodyBytes = 1 << 20

// ConversionApplier is the ingest path. *ingest.Pipeline implements it.
type ConversionApplier interface {
	Apply(ctx context.Context, ev models.ConversionEvent) (ingest.Outcome, error)
}

type Handler struct {
	reports   *Reports
	pipeline  ConversionApplier
	validator *services.Validator
	log       *slog.Logger
}

func NewHandler(reports *Reports, pipeline ConversionApplier, validator *services.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{reports: reports, pipeline: pipeline, validator: validator, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/v1/conversions?status=&from=&to=&limit=&offset=
func (h *Handler) ListConversions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dr, err := parseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f := models.ConversionFilter{Range: dr}
	if s := q.Get("status"); s != "" {
		status := models.ConversionStatus(strings.ToLower(s))
		if !status.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		f.Status = &status
	}
	if f.Page, err = parsePage(q.Get("limit"), q.Get("offset")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.reports.ListConversions(r.Context(), f)
	if err != nil {
		h.log.Error("list conversions failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversions": list,
		"limit":       f.Page.Limit,
		"offset":      f.Page.Offset,
	})
}

// GET /api/v1/conversions/{network}/{transactionID}
func (h *Handler) GetConversion(w http.ResponseWriter, r *http.Request) {
	network, ok := models.ParseNetwork(r.PathValue("network"))
	if !ok {
		http.Error(w, "unknown network", http.StatusBadRequest)
		return
	}
	txID := r.PathValue("transactionID")
	conv, err := h.reports.GetConversion(r.Context(), network, txID)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "conversion not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("get conversion failed", "network", network, "transaction_id", txID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// GET /api/v1/conversions/stats?from=&to=
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	dr, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	stats, err := h.reports.Stats(r.Context(), dr)
	if err != nil {
		h.log.Error("conversion stats failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/v1/reports/revenue-by-source
func (h *Handler) RevenueBySource(w http.ResponseWriter, r *http.Request) {
	dr, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	list, err := h.reports.RevenueBySource(r.Context(), dr)
	if err != nil {
		h.log.Error("revenue by source failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/reports/revenue-by-video
func (h *Handler) RevenueByVideo(w http.ResponseWriter, r *http.Request) {
	dr, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	list, err := h.reports.RevenueByVideo(r.Context(), dr)
	if err != nil {
		h.log.Error("revenue by video failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/reports/offers
func (h *Handler) OfferPerformance(w http.ResponseWriter, r *http.Request) {
	dr, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	list, err := h.reports.OfferPerformance(r.Context(), dr)
	if err != nil {
		h.log.Error("offer performance failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/reports/offers/{offerID}/clicks?limit=
func (h *Handler) OfferClicks(w http.ResponseWriter, r *http.Request) {
	offerID := r.PathValue("offerID")
	if offerID == "" {
		http.Error(w, "missing offer id", http.StatusBadRequest)
		return
	}
	page, err := parsePage(r.URL.Query().Get("limit"), "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.reports.OfferClicks(r.Context(), offerID, page.Limit)
	if err != nil {
		h.log.Error("offer clicks failed", "offer_id", offerID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type testConversionRequest struct {
	TransactionID  string      `json:"transaction_id"`
	Network        string      `json:"network"`
	OfferID        string      `json:"offer_id"`
	OfferName      string      `json:"offer_name"`
	Payout         json.Number `json:"payout"`
	Currency       string      `json:"currency"`
	Status         string      `json:"status"`
	ClickDate      string      `json:"click_date"`
	ConversionDate string      `json:"conversion_date"`
	SubID1         string      `json:"sub_id_1"`
	SubID2         string      `json:"sub_id_2"`
	SubID3         string      `json:"sub_id_3"`
}

// POST /api/v1/conversions/test
//
// Records a conversion by hand through the same pipeline as webhooks. The
// network defaults to manual-test and the status to pending.
func (h *Handler) CreateTestConversion(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	if err := h.validator.Validate(services.SchemaManualConversion, body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ev, err := testConversionEvent(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	out, err := h.pipeline.Apply(r.Context(), ev)
	if err != nil {
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
			return
		}
		h.log.Error("manual conversion failed",
			"network", ev.Network,
			"transaction_id", ev.NetworkTransactionID,
			"error", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"created":     out.Created,
		"conversion":  out.Conversion,
		"attribution": out.Attribution,
	})
}

func testConversionEvent(body []byte) (models.ConversionEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var req testConversionRequest
	if err := dec.Decode(&req); err != nil {
		return models.ConversionEvent{}, fmt.Errorf("invalid JSON: %w", err)
	}

	network := models.NetworkManualTest
	if req.Network != "" {
		n, ok := models.ParseNetwork(req.Network)
		if !ok {
			return models.ConversionEvent{}, fmt.Errorf("unknown network %q", req.Network)
		}
		network = n
	}
	payout, err := providers.ParseAmount(req.Payout.String())
	if err != nil {
		return models.ConversionEvent{}, fmt.Errorf("invalid payout: %w", err)
	}
	clickDate, err := providers.ParseTimestamp(req.ClickDate)
	if err != nil {
		return models.ConversionEvent{}, fmt.Errorf("invalid click_date: %w", err)
	}
	convDate, err := providers.ParseTimestamp(req.ConversionDate)
	if err != nil {
		return models.ConversionEvent{}, fmt.Errorf("invalid conversion_date: %w", err)
	}
	status := req.Status
	if status == "" {
		status = string(models.StatusPending)
	}
	return models.ConversionEvent{
		Network:              network,
		NetworkTransactionID: req.TransactionID,
		OfferID:              req.OfferID,
		OfferName:            req.OfferName,
		Payout:               decimal.NewNullDecimal(payout),
		Currency:             req.Currency,
		RawStatus:            status,
		ClickDate:            clickDate,
		ConversionDate:       convDate,
		SubID1:               req.SubID1,
		SubID2:               req.SubID2,
		SubID3:               req.SubID3,
	}, nil
}

func (h *Handler) dateRange(w http.ResponseWriter, r *http.Request) (models.DateRange, bool) {
	q := r.URL.Query()
	dr, err := parseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return models.DateRange{}, false
	}
	return dr, true
}

// parseDateRange accepts YYYY-MM-DD or RFC3339. A date-only "to" covers the
// whole day; the returned To is exclusive.
func parseDateRange(from, to string) (models.DateRange, error) {
	var dr models.DateRange
	if from != "" {
		t, _, err := parseDate(from)
		if err != nil {
			return dr, fmt.Errorf("invalid from: %w", err)
		}
		dr.From = &t
	}
	if to != "" {
		t, dateOnly, err := parseDate(to)
		if err != nil {
			return dr, fmt.Errorf("invalid to: %w", err)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		dr.To = &t
	}
	if dr.From != nil && dr.To != nil && !dr.From.Before(*dr.To) {
		return dr, errors.New("from must be before to")
	}
	return dr, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	return t.UTC(), false, nil
}

func parsePage(limit, offset string) (models.Pagination, error) {
	p := models.Pagination{Limit: repository.DefaultPageSize}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return p, errors.New("invalid limit")
		}
		p.Limit = min(n, repository.MaxPageSize)
	}
	if offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return p, errors.New("invalid offset")
		}
		p.Offset = n
	}
	return p, nil
}

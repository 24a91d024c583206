package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/affiliateops/backend/internal/execution"
	"github.com/affiliateops/backend/internal/models"
)

// EnqueueSyncFunc inserts a sync job. Provided by main as a closure over river.Client.Insert.
type EnqueueSyncFunc func(ctx context.Context, args execution.SyncConversionsArgs) error

type Handler struct {
	svc     Service
	enqueue EnqueueSyncFunc
	log     *slog.Logger
}

// NewHandler returns the admin sync handler. enqueue may be nil, in which case
// async requests run synchronously.
func NewHandler(svc Service, enqueue EnqueueSyncFunc, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, enqueue: enqueue, log: log}
}

// TriggerSync handles POST /api/v1/sync[?network=][&async=true]. The response is
// the per-network summary; a failed network does not change the status code.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var network models.NetworkName
	if raw := r.URL.Query().Get("network"); raw != "" {
		n, ok := models.ParseNetwork(raw)
		if !ok {
			http.Error(w, `{"error":"unknown network"}`, http.StatusBadRequest)
			return
		}
		network = n
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && h.enqueue != nil {
		args := execution.SyncConversionsArgs{Network: string(network), Trigger: models.SyncTriggerManual}
		if err := h.enqueue(r.Context(), args); err != nil {
			h.log.Error("enqueue sync failed", "error", err)
			http.Error(w, `{"error":"enqueue sync failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"enqueued": true, "network": network})
		return
	}

	var run *models.SyncRun
	if network == "" {
		run = h.svc.SyncAll(r.Context(), models.SyncTriggerManual)
	} else {
		var err error
		run, err = h.svc.SyncNetwork(r.Context(), network, models.SyncTriggerManual)
		if errors.Is(err, ErrUnknownNetwork) {
			http.Error(w, `{"error":"network is not synced by polling"}`, http.StatusBadRequest)
			return
		}
		if err != nil {
			h.log.Error("sync network failed", "network", network, "error", err)
			http.Error(w, `{"error":"sync failed"}`, http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /api/v1/sync/runs?limit=.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.ListRuns(r.Context(), limit)
	if err != nil {
		h.log.Error("list sync runs failed", "error", err)
		http.Error(w, `{"error":"list sync runs failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

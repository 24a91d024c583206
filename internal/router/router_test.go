package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/affiliateops/backend/internal/auth"
	"github.com/affiliateops/backend/internal/dashboard"
	"github.com/affiliateops/backend/internal/jobs"
	"github.com/affiliateops/backend/internal/models"
)

type stubSyncer struct{}

func (stubSyncer) SyncAll(context.Context, string) *models.SyncRun { return &models.SyncRun{} }

func (stubSyncer) SyncNetwork(context.Context, models.NetworkName, string) (*models.SyncRun, error) {
	return &models.SyncRun{}, nil
}

func (stubSyncer) ListRuns(context.Context, int) ([]*models.SyncRun, error) {
	return []*models.SyncRun{}, nil
}

// denyAll stands in for the operator middleware.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func TestNew_ProtectsOperatorRoutes(t *testing.T) {
	h := New(
		auth.NewHandler(nil, nil),
		dashboard.NewHandler(nil, nil, nil, nil),
		jobs.NewHandler(stubSyncer{}, nil, nil),
		denyAll,
	)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/conversions"},
		{http.MethodGet, "/api/v1/conversions/stats"},
		{http.MethodGet, "/api/v1/conversions/impact/TX1"},
		{http.MethodPost, "/api/v1/conversions/test"},
		{http.MethodGet, "/api/v1/reports/revenue-by-source"},
		{http.MethodGet, "/api/v1/reports/revenue-by-video"},
		{http.MethodGet, "/api/v1/reports/offers"},
		{http.MethodGet, "/api/v1/reports/offers/o-1/clicks"},
		{http.MethodPost, "/api/v1/sync"},
		{http.MethodGet, "/api/v1/sync/runs"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestNew_LoginIsPublic(t *testing.T) {
	h := New(
		auth.NewHandler(nil, nil),
		dashboard.NewHandler(nil, nil, nil, nil),
		jobs.NewHandler(stubSyncer{}, nil, nil),
		denyAll,
	)
	rec := httptest.NewRecorder()
	// An invalid body is rejected by the handler itself, not by the middleware.
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 from login handler, got %d", rec.Code)
	}
}

func TestNew_WrongMethod(t *testing.T) {
	h := New(
		auth.NewHandler(nil, nil),
		dashboard.NewHandler(nil, nil, nil, nil),
		jobs.NewHandler(stubSyncer{}, nil, nil),
		denyAll,
	)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/conversions", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

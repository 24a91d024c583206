package router

import (
	"net/http"

	"github.com/affiliateops/backend/internal/auth"
	"github.com/affiliateops/backend/internal/dashboard"
	"github.com/affiliateops/backend/internal/jobs"
)

// New returns an http.Handler that serves the operator API under /api/v1.
// Everything except login goes through requireOperator.
func New(authHandler *auth.Handler, dashHandler *dashboard.Handler, syncHandler *jobs.Handler, requireOperator func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireOperator(h))
	}
	protected("GET "+base+"/conversions", dashHandler.ListConversions)
	protected("GET "+base+"/conversions/stats", dashHandler.Stats)
	protected("GET "+base+"/conversions/{network}/{transactionID}", dashHandler.GetConversion)
	protected("POST "+base+"/conversions/test", dashHandler.CreateTestConversion)

	protected("GET "+base+"/reports/revenue-by-source", dashHandler.RevenueBySource)
	protected("GET "+base+"/reports/revenue-by-video", dashHandler.RevenueByVideo)
	protected("GET "+base+"/reports/offers", dashHandler.OfferPerformance)
	protected("GET "+base+"/reports/offers/{offerID}/clicks", dashHandler.OfferClicks)

	protected("POST "+base+"/sync", syncHandler.TriggerSync)
	protected("GET "+base+"/sync/runs", syncHandler.ListRuns)

	return mux
}

// Package web exposes the booking engine as a JSON API.
package web

import (
	"net/http"
	"time"

	"courtside/internal/adapters/events"
	"courtside/internal/adapters/http/middleware"
	"courtside/internal/adapters/http/perf"
	accountStore "courtside/internal/adapters/storage/account"
	activityStore "courtside/internal/adapters/storage/activity"
	courtStore "courtside/internal/adapters/storage/court"
	occupancyStore "courtside/internal/adapters/storage/occupancy"
	participationStore "courtside/internal/adapters/storage/participation"
	"courtside/internal/application/calendar"
	"courtside/internal/application/keylock"
	"courtside/internal/application/ledgerops"
)

// Stores holds all storage dependencies.
type Stores struct {
	ActivityStore      activityStore.Store
	ParticipationStore participationStore.Store
	AccountStore       accountStore.Store
	OccupancyStore     occupancyStore.Store
	CourtStore         courtStore.Store
}

// Services holds the application services the handlers drive.
type Services struct {
	Ledger    *ledgerops.Ledger
	Calendar  *calendar.Calendar
	Locks     *keylock.Manager
	Publisher events.Publisher
}

// Global instances (set by NewMux)
var stores *Stores
var services *Services
var perfCollector *perf.Collector
var jwtSecret []byte

// DevTokenEnabled allows the unauthenticated dev token endpoint. Only main
// turns this on, and never in production.
var DevTokenEnabled = false

// RateLimitPerSecond controls the per-caller rate limit. Tests can increase
// this.
var RateLimitPerSecond = 10

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, svc *Services, collector *perf.Collector, secret []byte) http.Handler {
	stores = s
	services = svc
	perfCollector = collector
	jwtSecret = secret

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)
	limit := middleware.RateLimit(limiter)

	// Everything under /api/ except health and token issuance requires a
	// valid bearer token. The limiter sits inside Auth so it keys per user;
	// the unauthenticated token endpoint is keyed by IP.
	api := http.NewServeMux()
	registerRoutes(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("POST /api/dev/token", limit(http.HandlerFunc(handleDevToken)))
	mux.Handle("/api/", middleware.Auth(secret)(limit(api)))

	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.Timing(collector),
	)
}

// registerRoutes attaches the authenticated API surface. Producer-side
// endpoints additionally require the admin role.
func registerRoutes(mux *http.ServeMux) {
	admin := middleware.RequireRole("admin")

	mux.Handle("POST /api/activities", admin(http.HandlerFunc(handleCreateActivity)))
	mux.HandleFunc("GET /api/activities", handleClubSchedule)
	mux.HandleFunc("GET /api/activities/{id}", handleGetActivity)
	mux.HandleFunc("POST /api/activities/{id}/participations", handleSubmitParticipation)
	mux.HandleFunc("DELETE /api/activities/{id}/participations", handleLeaveActivity)
	mux.HandleFunc("POST /api/activities/{id}/points-booking", handleBookWithPoints)
	mux.HandleFunc("GET /api/participations", handleListMyBookings)

	mux.HandleFunc("GET /api/balance", handleGetBalance)
	mux.HandleFunc("GET /api/transactions", handleGetTransactions)
	mux.Handle("POST /api/topup", admin(http.HandlerFunc(handleTopUp)))

	mux.HandleFunc("GET /api/courts", handleListCourts)
	mux.Handle("POST /api/courts", admin(http.HandlerFunc(handleCreateCourt)))

	mux.HandleFunc("GET /api/perf", handlePerfSnapshot)
}

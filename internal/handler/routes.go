package handler

import (
	"net/http"

	"github.com/msomdec/engagement/internal/domain"
	"github.com/msomdec/engagement/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. Session endpoints
// are rate limited per user when limiter is non-nil.
func RegisterRoutes(mux *http.ServeMux, db domain.Database, auth *service.AuthService, engage *service.EngagementService, limiter *service.TokenBucket) {
	h := NewEngagementHandler(engage)

	protect := func(fn http.HandlerFunc) http.Handler {
		return RequireAuth(auth, fn)
	}
	limited := func(fn http.HandlerFunc) http.Handler {
		if limiter == nil {
			return protect(fn)
		}
		return RequireAuth(auth, RateLimit(limiter, fn))
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.HandleFunc("GET /readyz", HandleReadyz(db))

	mux.Handle("POST /api/subspaces", protect(h.HandleCreateSubspace))
	mux.Handle("GET /api/subspaces", protect(h.HandleListSubspaces))
	mux.Handle("GET /api/subspaces/{id}/summary", protect(h.HandleSummary))
	mux.Handle("GET /api/subspaces/{id}/sessions", protect(h.HandleSessions))

	mux.Handle("POST /api/sessions", limited(h.HandleEnter))
	mux.Handle("POST /api/sessions/{id}/end", limited(h.HandleLeave))

	mux.Handle("GET /api/continue", protect(h.HandleContinue))

	mux.Handle("POST /api/activity", limited(h.HandleRecordActivity))
	mux.Handle("GET /api/streak", protect(h.HandleStreak))
	mux.Handle("PUT /api/streak/timezone", protect(h.HandleSetTimezone))
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FlaxHawk/Anxiety-Ally/internal/auth"
	"github.com/FlaxHawk/Anxiety-Ally/internal/core"
	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
	"github.com/FlaxHawk/Anxiety-Ally/internal/metrics"
	"github.com/FlaxHawk/Anxiety-Ally/internal/store"
)

// accessLog writes one zerolog line per request and records the request
// metrics under the matched route pattern.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequest(r.Method, route, status, duration)

		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Msg("request completed")
	})
}

type userKey struct{}

// RequireUser rejects requests without a verified identity whose subject
// still exists. Every failure gets the same 401.
func (h *APIHandler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, detailInvalidToken)
			return
		}

		user, err := h.users.Get(r.Context(), id.UserID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				writeUnauthorized(w, detailInvalidToken)
				return
			}
			serviceError(w, r, err, "")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

// currentUser is only valid behind RequireUser.
func currentUser(r *http.Request) *store.User {
	u, _ := r.Context().Value(userKey{}).(*store.User)
	return u
}

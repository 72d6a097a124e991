package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
)

// IdentityFunc returns the authenticated user id carried by ctx, or "".
type IdentityFunc func(ctx context.Context) string

// Middleware gates every request through l. Denied requests get a 429 with
// the configured limit in the body and are not passed on.
func Middleware(l *Limiter, identify IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := Request{IP: ClientIP(r), Path: r.URL.Path}
			if identify != nil {
				req.UserID = identify(r.Context())
			}

			if d := l.Allow(r.Context(), req); !d.Allowed {
				writeLimited(w, l)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeLimited(w http.ResponseWriter, l *Limiter) {
	seconds := int(l.Period().Seconds())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"detail": fmt.Sprintf("Rate limit exceeded: %d requests per %d seconds", l.Requests(), seconds),
	})
}

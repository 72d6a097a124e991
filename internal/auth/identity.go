package auth

import (
	"context"
	"net/http"
	"strings"
)

// Identity is the authenticated caller. Its presence in a context only means
// the bearer token verified; handlers that need an existing user still look
// the subject up.
type Identity struct {
	UserID string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// UserID returns the identity's user id or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// OptionalIdentity attaches an Identity when the request carries a valid
// bearer token and passes every request through regardless.
func OptionalIdentity(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := BearerToken(r); ok {
				if sub, err := tm.Validate(token); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: sub}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

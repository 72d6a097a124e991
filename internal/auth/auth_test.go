package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	tm, err := NewTokenManager("secret", "HS256", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := tm.Generate("user-1")
	if err != nil {
		t.Fatal(err)
	}
	sub, err := tm.Validate(token)
	if err != nil || sub != "user-1" {
		t.Fatalf("Validate() = %q, %v", sub, err)
	}
}

func TestTokenRejections(t *testing.T) {
	tm, _ := NewTokenManager("secret", "HS256", time.Hour)
	other, _ := NewTokenManager("other-secret", "HS256", time.Hour)
	hs512, _ := NewTokenManager("secret", "HS512", time.Hour)

	expired, _ := NewTokenManager("secret", "HS256", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))

	mustGen := func(m *TokenManager) string {
		s, err := m.Generate("user-1")
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	tests := map[string]string{
		"wrong secret":    mustGen(other),
		"wrong algorithm": mustGen(hs512),
		"expired":         mustGen(expired),
		"missing subject": noSub,
		"garbage":         "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tm.Validate(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestNewTokenManagerRejectsAsymmetric(t *testing.T) {
	if _, err := NewTokenManager("secret", "RS256", time.Hour); err == nil {
		t.Error("expected RS256 to be rejected")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPasswordHash("correct horse", hash) {
		t.Error("matching password rejected")
	}
	if CheckPasswordHash("wrong horse", hash) {
		t.Error("wrong password accepted")
	}
}

func TestOptionalIdentity(t *testing.T) {
	tm, _ := NewTokenManager("secret", "HS256", time.Hour)
	token, _ := tm.Generate("user-9")

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer " + token, "user-9"},
		{"lowercase scheme", "bearer " + token, "user-9"},
		{"invalid", "Bearer nope", ""},
		{"missing", "", ""},
		{"basic", "Basic dXNlcjpwYXNz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			called := false
			h := OptionalIdentity(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got = UserID(r.Context())
			}))
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), r)
			if !called {
				t.Fatal("next handler not called")
			}
			if got != tt.want {
				t.Errorf("UserID = %q, want %q", got, tt.want)
			}
		})
	}
}

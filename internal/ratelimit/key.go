package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeyPrefix namespaces window keys in the shared store.
const KeyPrefix = "ratelimit:"

// Key hashes the (ip, path, user) triple into a short opaque window key.
// An empty userID contributes nothing, so anonymous requests share the
// (ip, path) window.
func Key(ip, path, userID string) string {
	d := xxhash.New()
	_, _ = d.WriteString(ip)
	_, _ = d.WriteString(":")
	_, _ = d.WriteString(path)
	if userID != "" {
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(userID)
	}
	return fmt.Sprintf("%s%016x", KeyPrefix, d.Sum64())
}

// ClientIP prefers the first X-Forwarded-For entry and falls back to the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

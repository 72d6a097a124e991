package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestKey(t *testing.T) {
	a := Key("10.0.0.1", "/journals", "u1")
	if a != Key("10.0.0.1", "/journals", "u1") {
		t.Fatal("same triple produced different keys")
	}
	if len(a) != len(KeyPrefix)+16 || a[:len(KeyPrefix)] != KeyPrefix {
		t.Fatalf("unexpected key shape %q", a)
	}

	others := []string{
		Key("10.0.0.2", "/journals", "u1"),
		Key("10.0.0.1", "/moods", "u1"),
		Key("10.0.0.1", "/journals", "u2"),
		Key("10.0.0.1", "/journals", ""),
	}
	for _, o := range others {
		if o == a {
			t.Errorf("distinct triple collided with %q", a)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name, fwd, remote, want string
	}{
		{"forwarded chain", "203.0.113.9, 10.0.0.1", "192.0.2.1:1234", "203.0.113.9"},
		{"single forwarded", " 203.0.113.7 ", "192.0.2.1:1234", "203.0.113.7"},
		{"remote addr", "", "192.0.2.1:1234", "192.0.2.1"},
		{"remote without port", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.fwd != "" {
				r.Header.Set("X-Forwarded-For", tt.fwd)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalStoreNeverExceedsLimit(t *testing.T) {
	s := NewLocalStore()
	start := time.Unix(1_700_000_000, 0)
	period := 10 * time.Second
	const requests = 4

	var accepted []time.Time
	for i := 0; i < 200; i++ {
		now := start.Add(time.Duration(i) * 700 * time.Millisecond)
		if s.Allow("k", now, requests, period) {
			accepted = append(accepted, now)
		}
	}

	for i := range accepted {
		inWindow := 0
		for j := range accepted {
			d := accepted[i].Sub(accepted[j])
			if d >= 0 && d < period {
				inWindow++
			}
		}
		if inWindow > requests {
			t.Fatalf("%d accepted hits within one period ending at %v", inWindow, accepted[i])
		}
	}
}

func TestLocalStoreConcurrentAllow(t *testing.T) {
	s := NewLocalStore()
	now := time.Unix(1_700_000_000, 0)
	const (
		callers  = 64
		requests = 10
	)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.Allow("k", now, requests, time.Minute) {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := allowed.Load(); got != requests {
		t.Errorf("%d concurrent calls allowed, want exactly %d", got, requests)
	}
	if n := s.Count("k"); n != requests {
		t.Errorf("window holds %d hits, want %d", n, requests)
	}
}

func TestLocalStoreDropsExpiredWindows(t *testing.T) {
	s := NewLocalStore()
	start := time.Unix(1_700_000_000, 0)
	period := time.Minute

	for i := 0; i < 50; i++ {
		s.Allow(fmt.Sprintf("ip-%d", i), start, 5, period)
	}
	if n := s.Len(); n != 50 {
		t.Fatalf("Len() = %d, want 50", n)
	}

	s.Allow("late", start.Add(period), 5, period)
	if n := s.Len(); n != 1 {
		t.Errorf("Len() = %d after the period elapsed, want only the live key", n)
	}

	if removed := s.Sweep(start.Add(3*period), period); removed != 1 {
		t.Errorf("Sweep() removed %d windows, want 1", removed)
	}
	if n := s.Len(); n != 0 {
		t.Errorf("Len() = %d after Sweep, want 0", n)
	}
}

func TestLocalStoreDeniedEmptyWindowNotKept(t *testing.T) {
	s := NewLocalStore()
	if s.Allow("k", time.Now(), 0, time.Minute) {
		t.Fatal("zero-request limit allowed a hit")
	}
	if n := s.Len(); n != 0 {
		t.Errorf("Len() = %d, want denied empty window dropped", n)
	}
}

func TestLocalStoreReset(t *testing.T) {
	s := NewLocalStore()
	now := time.Now()
	if !s.Allow("k", now, 1, time.Minute) || s.Allow("k", now, 1, time.Minute) {
		t.Fatal("unexpected decisions before reset")
	}
	s.Reset()
	if !s.Allow("k", now, 1, time.Minute) {
		t.Fatal("request denied after reset")
	}
}

type serverError string

func (e serverError) Error() string { return string(e) }
func (serverError) RedisError() {}

func TestClassifyRedisError(t *testing.T) {
	if err := classifyRedisError(serverError("WRONGTYPE Operation against a key")); !errors.Is(err, ErrStoreFailure) {
		t.Errorf("server reply classified as %v", err)
	}
	if err := classifyRedisError(fmt.Errorf("dial tcp: connection refused")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("network error classified as %v", err)
	}
	if err := classifyRedisError(context.DeadlineExceeded); !errors.Is(err, ErrUnavailable) {
		t.Errorf("deadline classified as %v", err)
	}
}


func newTestRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisStore(client)
}

func TestRedisStoreWindow(t *testing.T) {
	mr, store := newTestRedisStore(t)
	ctx := context.Background()
	key := Key("10.0.0.1", "/journals", "")
	start := time.Unix(1_700_000_000, 0)

	hits := []struct {
		at   time.Time
		want int64
	}{
		{start, 1},
		{start, 2}, // same instant still counts separately
		{start.Add(time.Second), 3},
		{start.Add(2 * time.Second), 4},
		// hits exactly one period old fall out of the window
		{start.Add(time.Minute), 3},
		{start.Add(time.Minute + 1500*time.Millisecond), 3},
	}
	for i, h := range hits {
		got, err := store.Hit(ctx, key, h.at, time.Minute)
		if err != nil {
			t.Fatalf("hit %d: Hit() error = %v", i+1, err)
		}
		if got != h.want {
			t.Fatalf("hit %d: count = %d, want %d", i+1, got, h.want)
		}
	}

	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Errorf("TTL = %v, want one period", ttl)
	}
}

func TestRedisStoreRefreshesExpiry(t *testing.T) {
	mr, store := newTestRedisStore(t)
	ctx := context.Background()
	key := Key("10.0.0.2", "/moods", "u1")
	now := time.Unix(1_700_000_000, 0)

	if _, err := store.Hit(ctx, key, now, time.Minute); err != nil {
		t.Fatalf("Hit() error = %v", err)
	}
	mr.FastForward(40 * time.Second)
	if _, err := store.Hit(ctx, key, now.Add(40*time.Second), time.Minute); err != nil {
		t.Fatalf("Hit() error = %v", err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Errorf("TTL after second hit = %v, want refreshed to one period", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if mr.Exists(key) {
		t.Error("window still present after a full idle period")
	}
}

func TestRedisStoreWrongTypeFailsOpen(t *testing.T) {
	mr, store := newTestRedisStore(t)
	req := Request{IP: "10.0.0.3", Path: "/ai/chat"}
	key := Key(req.IP, req.Path, "")
	if err := mr.Set(key, "not a sorted set"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := store.Hit(context.Background(), key, time.Now(), time.Minute); !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("Hit() error = %v, want ErrStoreFailure", err)
	}

	l := New(1, time.Minute, WithStore(store))
	for i := 0; i < 3; i++ {
		if d := l.Allow(context.Background(), req); !d.Allowed || d.Source != SourceFailOpen {
			t.Fatalf("request %d: got %+v, want fail-open", i+1, d)
		}
	}
}

func TestRedisStoreLimiterSharedWindow(t *testing.T) {
	_, store := newTestRedisStore(t)
	l := New(2, time.Minute, WithStore(store))
	req := Request{IP: "10.0.0.4", Path: "/journals", UserID: "u2"}

	for i := 0; i < 2; i++ {
		if d := l.Allow(context.Background(), req); !d.Allowed || d.Source != SourceShared {
			t.Fatalf("request %d: got %+v, want allowed by redis", i+1, d)
		}
	}
	if d := l.Allow(context.Background(), req); d.Allowed || d.Source != SourceShared {
		t.Fatalf("3rd request: got %+v, want denied by redis", d)
	}
}

// TestRedisClientSingleAttempt points the client at a listener that drops
// every connection: each Allow dials once and answers locally.
func TestRedisClientSingleAttempt(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			conn.Close()
		}
	}()

	client, err := NewRedisClient("redis://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer client.Close()

	l := New(5, time.Minute, WithStore(NewRedisStore(client)))
	for i := 1; i <= 2; i++ {
		start := time.Now()
		d := l.Allow(context.Background(), Request{IP: "10.0.0.5", Path: "/moods"})
		if !d.Allowed || d.Source != SourceLocal {
			t.Fatalf("request %d: got %+v, want local decision", i, d)
		}
		if got := accepted.Load(); got != int32(i) {
			t.Fatalf("after request %d: %d connections accepted, want %d", i, got, i)
		}
		if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
			t.Errorf("request %d took %v to fall back", i, elapsed)
		}
	}
}

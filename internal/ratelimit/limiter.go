// Package ratelimit throttles requests per (client, path, user) with a
// sliding window kept in Redis, degrading to an in-process window when Redis
// is not configured, unreachable or slow.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
	"github.com/FlaxHawk/Anxiety-Ally/internal/metrics"
)

const DefaultTimeout = 3 * time.Second

// The breaker opens after this many consecutive unreachable checks and
// probes the shared store again after the cooldown.
const (
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
)

// Source names which path produced a decision.
type Source string

const (
	SourceExempt   Source = "exempt"
	SourceShared   Source = "redis"
	SourceLocal    Source = "local"
	SourceFailOpen Source = "fail_open"
)

// Request describes the caller being limited. UserID is empty for
// anonymous requests.
type Request struct {
	IP     string
	Path   string
	UserID string
}

type Decision struct {
	Allowed bool
	Source  Source
}

type Limiter struct {
	requests int
	period   time.Duration
	timeout  time.Duration
	exempt   []string
	shared   Store
	local    *LocalStore
	now      func() time.Time
	logger   zerolog.Logger

	breakerFailures uint32
	breakerCooldown time.Duration
	breaker         *gobreaker.CircuitBreaker[int64]
}

type Option func(*Limiter)

// WithStore sets the shared store. Without one every check is local.
func WithStore(s Store) Option {
	return func(l *Limiter) { l.shared = s }
}

func WithTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithExemptPaths replaces the path prefixes that bypass limiting.
func WithExemptPaths(prefixes ...string) Option {
	return func(l *Limiter) { l.exempt = prefixes }
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithLocalStore(s *LocalStore) Option {
	return func(l *Limiter) { l.local = s }
}

// WithBreaker tunes the circuit breaker around the shared store.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(l *Limiter) {
		if failures > 0 {
			l.breakerFailures = failures
		}
		if cooldown > 0 {
			l.breakerCooldown = cooldown
		}
	}
}

// New allows requests hits per period for each key.
func New(requests int, period time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		requests: requests,
		period:   period,
		timeout:  DefaultTimeout,
		exempt:   []string{"/docs", "/openapi"},
		local:    NewLocalStore(),
		now:      time.Now,
		logger:   logging.With().Str("component", "ratelimit").Logger(),

		breakerFailures: DefaultBreakerFailures,
		breakerCooldown: DefaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.breaker = gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:    "ratelimit-store",
		Timeout: l.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= l.breakerFailures
		},
		// A server-side error proves the store is reachable.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrStoreFailure)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("rate limit store circuit breaker state changed")
		},
	})
	return l
}

func (l *Limiter) Requests() int { return l.requests }

func (l *Limiter) Period() time.Duration { return l.period }

// Local exposes the fallback store.
func (l *Limiter) Local() *LocalStore { return l.local }

func (l *Limiter) isExempt(path string) bool {
	for _, prefix := range l.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Allow decides a single request. It never returns an error: shared store
// trouble is absorbed by the local window or, for server-side errors, by
// letting the request through.
func (l *Limiter) Allow(ctx context.Context, req Request) Decision {
	d := l.decide(ctx, req)
	metrics.RecordRateLimit(d.Allowed, string(d.Source))
	return d
}

func (l *Limiter) decide(ctx context.Context, req Request) Decision {
	if l.isExempt(req.Path) {
		return Decision{Allowed: true, Source: SourceExempt}
	}

	key := Key(req.IP, req.Path, req.UserID)
	now := l.now()

	if l.shared != nil {
		count, err := l.hitShared(ctx, key, now)
		switch {
		case err == nil:
			return Decision{Allowed: count <= int64(l.requests), Source: SourceShared}
		case errors.Is(err, ErrStoreFailure):
			l.logger.Warn().Err(err).Str("key", key).Msg("rate limit store error, allowing request")
			return Decision{Allowed: true, Source: SourceFailOpen}
		default:
			l.logger.Warn().Err(err).Str("key", key).Msg("rate limit store unavailable, using local window")
		}
	}

	return Decision{Allowed: l.local.Allow(key, now, l.requests, l.period), Source: SourceLocal}
}

type hitResult struct {
	count int64
	err   error
}

// hitShared runs one shared store check behind the breaker. An open breaker
// reads as ErrUnavailable so the request is answered locally.
func (l *Limiter) hitShared(ctx context.Context, key string, now time.Time) (int64, error) {
	count, err := l.breaker.Execute(func() (int64, error) {
		return l.hitWithTimeout(ctx, key, now)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, err
}

// hitWithTimeout bounds the shared store call by the limiter timeout. A late
// answer lands in the buffered channel and is dropped.
func (l *Limiter) hitWithTimeout(ctx context.Context, key string, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	done := make(chan hitResult, 1)
	go func() {
		count, err := l.shared.Hit(ctx, key, now, l.period)
		done <- hitResult{count: count, err: err}
	}()

	select {
	case res := <-done:
		return res.count, res.err
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnavailable means the shared store could not be reached in time.
	// The limiter answers from the local store instead.
	ErrUnavailable = errors.New("rate limit store unavailable")

	// ErrStoreFailure means the shared store was reached but replied with an
	// error. The limiter lets the request through.
	ErrStoreFailure = errors.New("rate limit store failure")
)

// Store records one hit for key and returns how many hits the key holds in
// the trailing period, the new one included.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, period time.Duration) (int64, error)
}

// RedisStore keeps each window as a sorted set scored by unix seconds.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses a redis:// URL. No connection is made until the
// first command. Commands and dials are attempted once: a failed check is
// answered from the local window, never retried within the request.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.MaxRetries = -1
	opts.DialerRetries = 1
	opts.DialerRetryTimeout = time.Millisecond
	return redis.NewClient(opts), nil
}

// Hit prunes, inserts, counts and refreshes the expiry inside one MULTI/EXEC
// so concurrent clients cannot interleave between the steps.
func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, period time.Duration) (int64, error) {
	score := unixSeconds(now)
	cutoff := strconv.FormatFloat(score-period.Seconds(), 'f', -1, 64)
	// Members must be unique or simultaneous hits collapse into one.
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	var card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, period)
		return nil
	})
	if err != nil {
		return 0, classifyRedisError(err)
	}
	return card.Val(), nil
}

// Ping checks connectivity, used at startup for a warning only.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func classifyRedisError(err error) error {
	var serverErr redis.Error
	if errors.As(err, &serverErr) {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
)

const (
	SentimentTimeout = 10 * time.Second
	ChatTimeout      = 30 * time.Second

	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

// ErrUnavailable means no usable answer came back from the inference API.
var ErrUnavailable = errors.New("inference unavailable")

// StatusError is a non-200 reply from the inference API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference api returned %d: %s", e.Code, e.Body)
}

// HFClient posts JSON payloads to Hugging Face hosted models. One breaker
// guards all models so a dead endpoint is not retried on every request.
type HFClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
}

func NewHFClient(baseURL, apiKey string) *HFClient {
	c := &HFClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
		logger:  logging.With().Str("component", "huggingface").Logger(),
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "huggingface",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("inference circuit breaker state changed")
		},
	})
	return c
}

// Post sends payload to model and returns the raw body of a 200 reply.
func (c *HFClient) Post(ctx context.Context, model string, payload interface{}, timeout time.Duration) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+model, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build inference request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("inference request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read inference response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(data), 200)}
		}
		return data, nil
	})
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

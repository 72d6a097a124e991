package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/FlaxHawk/Anxiety-Ally/internal/ai"
	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
	"github.com/FlaxHawk/Anxiety-Ally/internal/metrics"
	"github.com/FlaxHawk/Anxiety-Ally/internal/store"
)

const (
	EnrichmentTopic = "journal.enrichment"

	enrichmentHandler      = "journal_sentiment"
	enrichmentCloseTimeout = 5 * time.Second
)

// EnrichmentJob asks for the sentiment score of one journal entry.
type EnrichmentJob struct {
	EntryID string `json:"entry_id"`
	UserID  string `json:"user_id"`
}

type EnrichmentConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Buffer          int64
}

func DefaultEnrichmentConfig() EnrichmentConfig {
	return EnrichmentConfig{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Buffer:          256,
	}
}

// Enricher scores journal entries after they are written. Jobs travel over an
// in-process watermill channel; store failures are retried with backoff and
// dropped once retries run out.
type Enricher struct {
	pubsub   *gochannel.GoChannel
	router   *message.Router
	dbStore  *store.Store
	analyzer SentimentAnalyzer
}

func NewEnricher(db *store.Store, analyzer SentimentAnalyzer, cfg EnrichmentConfig) (*Enricher, error) {
	logger := logging.NewWatermillAdapter()

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.Buffer}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: enrichmentCloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	e := &Enricher{pubsub: pubsub, router: router, dbStore: db, analyzer: analyzer}

	// Outermost first: give up after retries, then recover panics, then retry.
	router.AddMiddleware(
		dropExhausted,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.InitialInterval,
			MaxInterval:     cfg.MaxInterval,
			Multiplier:      2,
			Logger:          logger,
		}.Middleware,
	)
	router.AddConsumerHandler(enrichmentHandler, EnrichmentTopic, pubsub, e.handle)

	return e, nil
}

// Run blocks until ctx is cancelled or Close is called.
func (e *Enricher) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

// Running is closed once the handler is subscribed.
func (e *Enricher) Running() <-chan struct{} {
	return e.router.Running()
}

func (e *Enricher) Publish(ctx context.Context, job EnrichmentJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode enrichment job: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := logging.RequestID(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}
	if err := e.pubsub.Publish(EnrichmentTopic, msg); err != nil {
		return fmt.Errorf("failed to publish enrichment job: %w", err)
	}
	return nil
}

// Close waits up to the close timeout for in-flight jobs.
func (e *Enricher) Close() error {
	return errors.Join(e.router.Close(), e.pubsub.Close())
}

func (e *Enricher) handle(msg *message.Message) error {
	ctx := msg.Context()
	log := logging.With().Str("message_uuid", msg.UUID).Str("request_id", msg.Metadata.Get("request_id")).Logger()

	var job EnrichmentJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		metrics.RecordEnrichment("invalid")
		log.Error().Err(err).Msg("discarding malformed enrichment job")
		return nil
	}
	log = log.With().Str("entry_id", job.EntryID).Logger()

	entry, err := e.dbStore.GetJournal(ctx, job.EntryID, job.UserID)
	if err != nil {
		return err
	}
	if entry == nil {
		metrics.RecordEnrichment("skipped")
		log.Debug().Msg("journal entry gone before enrichment")
		return nil
	}

	sentiment, err := e.analyzer.Analyze(ctx, entry.Content)
	if err != nil {
		metrics.RecordEnrichment("unavailable")
		if !errors.Is(err, ai.ErrUnavailable) {
			log.Error().Err(err).Msg("sentiment analysis failed")
		} else {
			log.Warn().Err(err).Msg("sentiment unavailable, leaving entry unscored")
		}
		return nil
	}

	if err := e.dbStore.SetJournalSentiment(ctx, entry.ID, entry.UserID, sentiment.Score); err != nil {
		return err
	}
	metrics.RecordEnrichment("ok")
	log.Debug().Float64("sentiment_score", sentiment.Score).Msg("journal entry enriched")
	return nil
}

// dropExhausted acks a job whose retries are spent so the channel does not
// redeliver it forever.
func dropExhausted(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			metrics.RecordEnrichment("failed")
			logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("journal enrichment failed after retries")
			return nil, nil
		}
		return out, nil
	}
}

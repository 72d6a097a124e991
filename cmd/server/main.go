package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FlaxHawk/Anxiety-Ally/internal/ai"
	"github.com/FlaxHawk/Anxiety-Ally/internal/api"
	"github.com/FlaxHawk/Anxiety-Ally/internal/auth"
	"github.com/FlaxHawk/Anxiety-Ally/internal/config"
	"github.com/FlaxHawk/Anxiety-Ally/internal/core"
	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
	"github.com/FlaxHawk/Anxiety-Ally/internal/ratelimit"
	"github.com/FlaxHawk/Anxiety-Ally/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	dbStore, err := store.New(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to initialize database")
	}
	defer dbStore.Close()

	limiter, closeRedis := newLimiter(cfg.RateLimit)
	defer closeRedis()

	var hf *ai.HFClient
	if cfg.AI.HuggingFaceAPIKey != "" {
		hf = ai.NewHFClient(cfg.AI.HuggingFaceBaseURL, cfg.AI.HuggingFaceAPIKey)
	} else {
		logging.Warn().Msg("HUGGINGFACE_API_KEY not set, sentiment analysis uses mock results")
	}
	analyzer := ai.NewAnalyzer(hf, cfg.AI.SentimentModel)

	chatModel, closeChat := newChatModel(cfg.AI, hf)
	defer closeChat()

	enricher, err := core.NewEnricher(dbStore, analyzer, core.DefaultEnrichmentConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize enrichment pipeline")
	}
	enrichCtx, stopEnrichment := context.WithCancel(context.Background())
	defer stopEnrichment()
	go func() {
		if err := enricher.Run(enrichCtx); err != nil {
			logging.Error().Err(err).Msg("Enrichment router stopped")
		}
	}()
	<-enricher.Running()

	tokens, err := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.TokenTTL())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	apiHandler := api.NewAPIHandler(
		core.NewUserService(dbStore, tokens),
		core.NewJournalService(dbStore, analyzer, enricher),
		core.NewMoodService(dbStore),
		core.NewChatService(chatModel),
		analyzer,
	)
	router := api.NewRouter(apiHandler, api.RouterConfig{
		Tokens:       tokens,
		Limiter:      limiter,
		AuthRequests: cfg.RateLimit.AuthRequests,
		CORSOrigins:  cfg.CORS.Origins,
	})

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // chat completions can take up to 30s
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", serverAddr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Str("addr", serverAddr).Msg("Could not listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := enricher.Close(); err != nil {
		logging.Error().Err(err).Msg("Failed to close enrichment pipeline")
	}

	// Deferred closes run in reverse: chat client, redis, database.
	logging.Info().Msg("Server exiting gracefully")
}

// newLimiter shares windows through Redis when REDIS_URL is set. An
// unreachable Redis at startup is only logged; each check falls back to the
// in-process store until it answers.
func newLimiter(cfg config.RateLimitConfig) (*ratelimit.Limiter, func()) {
	opts := []ratelimit.Option{
		ratelimit.WithTimeout(cfg.Timeout),
		ratelimit.WithExemptPaths(cfg.ExemptPaths...),
	}
	closeFn := func() {}

	if cfg.RedisURL == "" {
		logging.Warn().Msg("REDIS_URL not set, rate limiting is per process")
	} else {
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		rs := ratelimit.NewRedisStore(client)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		if err := rs.Ping(ctx); err != nil {
			logging.Warn().Err(err).Msg("Redis not reachable, falling back to local rate limiting until it is")
		}
		cancel()

		opts = append(opts, ratelimit.WithStore(rs))
		closeFn = func() {
			if err := rs.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing Redis client")
			}
		}
	}

	return ratelimit.New(cfg.Requests, time.Duration(cfg.Period)*time.Second, opts...), closeFn
}

// newChatModel returns nil when no provider is configured, which makes the
// chat service answer with its fixed prompt.
func newChatModel(cfg config.AIConfig, hf *ai.HFClient) (ai.ChatModel, func()) {
	if cfg.Provider == "gemini" {
		if cfg.GeminiAPIKey == "" {
			logging.Warn().Msg("AI_PROVIDER=gemini but GEMINI_API_KEY not set, using mock chatbot")
			return nil, func() {}
		}
		gemini, err := ai.NewGeminiChat(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		return gemini, func() {
			if err := gemini.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing GenAI client")
			}
		}
	}

	if hf == nil {
		return nil, func() {}
	}
	return ai.NewHFChat(hf, cfg.ChatModel), func() {}
}

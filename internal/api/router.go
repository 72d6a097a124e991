package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FlaxHawk/Anxiety-Ally/internal/auth"
	"github.com/FlaxHawk/Anxiety-Ally/internal/ratelimit"
)

type RouterConfig struct {
	Tokens  *auth.TokenManager
	Limiter *ratelimit.Limiter
	// AuthRequests caps credential endpoints per client IP per minute.
	AuthRequests int
	CORSOrigins  []string
}

func NewRouter(apiHandler *APIHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// Identity is resolved before the limiter so signed-in users get their
	// own window.
	r.Use(auth.OptionalIdentity(cfg.Tokens))
	r.Use(ratelimit.Middleware(cfg.Limiter, auth.UserID))

	r.Get("/", apiHandler.RootHandler)
	r.Get("/health", apiHandler.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.AuthRequests, time.Minute))
			r.Post("/register", apiHandler.RegisterHandler)
			r.Post("/token", apiHandler.TokenHandler)
			r.Post("/login", apiHandler.LoginHandler)
		})
		r.With(apiHandler.RequireUser).Get("/me", apiHandler.MeHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(apiHandler.RequireUser)

		r.Route("/journals", func(r chi.Router) {
			r.Post("/", apiHandler.CreateJournalHandler)
			r.Get("/", apiHandler.ListJournalsHandler)
			r.Get("/{entryID}", apiHandler.GetJournalHandler)
			r.Put("/{entryID}", apiHandler.UpdateJournalHandler)
			r.Delete("/{entryID}", apiHandler.DeleteJournalHandler)
			r.Get("/{entryID}/analysis", apiHandler.JournalAnalysisHandler)
		})

		r.Route("/moods", func(r chi.Router) {
			r.Post("/", apiHandler.CreateMoodHandler)
			r.Get("/", apiHandler.ListMoodsHandler)
			r.Get("/aggregate/{period}", apiHandler.AggregateMoodsHandler)
			r.Get("/{moodID}", apiHandler.GetMoodHandler)
			r.Put("/{moodID}", apiHandler.UpdateMoodHandler)
			r.Delete("/{moodID}", apiHandler.DeleteMoodHandler)
		})

		r.Post("/ai/chat", apiHandler.ChatHandler)
		r.Post("/ai/sentiment", apiHandler.SentimentHandler)
	})

	r.Get("/ai/breathing-exercises", apiHandler.BreathingExercisesHandler)

	return r
}

// File: cmd/server/app.go
package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iyunix/go-chatsync/internal/config"
	"github.com/iyunix/go-chatsync/internal/handlers"
	"github.com/iyunix/go-chatsync/internal/metrics"
	"github.com/iyunix/go-chatsync/internal/middleware"
	"github.com/iyunix/go-chatsync/internal/ratelimit"
	"github.com/iyunix/go-chatsync/internal/repository/document"
	"github.com/iyunix/go-chatsync/internal/services"
	"github.com/iyunix/go-chatsync/internal/services/chat"
	"github.com/iyunix/go-chatsync/internal/services/completion"
)

// Application aggregates everything the server runs on.
type Application struct {
	Config   *config.Config
	Logger   services.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Repo     document.Repository
	Sessions *chat.SessionManager
	Limiter  *ratelimit.KeyedLimiter
}

// NewApplication opens the document backend and builds the session engine.
func NewApplication(ctx context.Context, cfg *config.Config, logger services.Logger) (*Application, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repo, err := document.Open(ctx, cfg.Document(), logger)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	client, err := completion.New(cfg.Completion(), logger)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("completion client: %w", err)
	}

	sessions := chat.NewSessionManager(chat.Deps{
		Repo:        repo,
		Client:      client,
		Config:      cfg.Chat(),
		Persistence: cfg.Persistence(),
		Recorder:    m,
		Logger:      logger,
	})

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.RPS = cfg.RateLimitRPS
	limiterCfg.Burst = cfg.RateLimitBurst

	return &Application{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  m,
		Repo:     repo,
		Sessions: sessions,
		Limiter:  ratelimit.NewKeyedLimiter(limiterCfg),
	}, nil
}

// Router wires the HTTP surface.
func (a *Application) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.NewRecoverPanic(a.Logger))
	r.Use(middleware.NewLoggingMiddleware(a.Logger))

	r.HandleFunc("/health", handlers.Health(a.Sessions)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Without a signing secret the session key header is the only credential.
	secret := []byte(a.Config.JWTSecretKey)
	allowHeader := len(secret) == 0 || !a.Config.IsProduction()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewSessionAuth(secret, allowHeader, a.Logger))

	handlers.NewChatHandler(a.Sessions, a.Logger).
		Register(api, middleware.NewRateLimitMiddleware(a.Limiter, "send", a.Logger))

	// Outside the router so preflight requests never reach route matching.
	return corsMiddleware(r)
}

// Close flushes every session and releases the backend.
func (a *Application) Close(ctx context.Context) error {
	a.Limiter.Close()
	err := a.Sessions.CloseAll(ctx)
	if cerr := a.Repo.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Session-Key")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

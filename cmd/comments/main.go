package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/blog-comments/internal/events"
	"github.com/example/blog-comments/internal/handlers"
	"github.com/example/blog-comments/internal/platform/auth"
	"github.com/example/blog-comments/internal/platform/config"
	"github.com/example/blog-comments/internal/platform/httpserver"
	"github.com/example/blog-comments/internal/platform/logging"
	"github.com/example/blog-comments/internal/platform/natsconn"
	"github.com/example/blog-comments/internal/platform/run"
	"github.com/example/blog-comments/internal/ratelimit"
	"github.com/example/blog-comments/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	fs, err := store.NewFileStore(cfg.DataDir, log)
	if err != nil {
		log.Error("open comment store", zap.Error(err))
		run.Exit(1)
	}
	log.Info("comment store ready",
		zap.String("dir", cfg.DataDir), zap.Strings("categories", cfg.Categories))

	// Event publishing is optional; the engine serves fine without NATS.
	var pub *events.Publisher
	if cfg.NATSURL != "" {
		nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL})
		if err != nil {
			log.Warn("nats unavailable, comment events disabled", zap.Error(err))
		} else {
			pub = events.New(nc, log)
			defer nc.Close()
		}
	}

	readLimit := ratelimit.New("read", cfg.ReadBudget.Rate, cfg.ReadBudget.Burst)
	writeLimit := ratelimit.New("write", cfg.WriteBudget.Rate, cfg.WriteBudget.Burst)
	modLimit := ratelimit.New("moderate", cfg.ModerateBudget.Rate, cfg.ModerateBudget.Burst)

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}
	deps := handlers.Deps{Store: fs, Events: pub, Categories: cfg.Categories}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	r.Route("/v1/comments/{category}/{articleID}", func(r chi.Router) {
		// Bounded time budget per request: a stalled disk fails the
		// request instead of hanging it.
		r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

		r.With(readLimit.Middleware).Get("/", handlers.GetForest(deps))

		r.Group(func(r chi.Router) {
			r.Use(writeLimit.Middleware)
			r.Post("/", handlers.CreateComment(deps))
			r.Post("/reply/{parentID}", handlers.CreateReply(deps))
		})

		// Moderation requires an admin bearer token on top of its own budget.
		r.Group(func(r chi.Router) {
			r.Use(modLimit.Middleware)
			r.Use(auth.RequireUser(verifier))
			r.Use(auth.RequireAdmin)
			r.Put("/{commentID}", handlers.EditComment(deps))
			r.Delete("/{commentID}", handlers.DeleteComment(deps))
		})
	})

	srv := httpserver.New(httpserver.Options{
		Addr:   cfg.HTTP.Addr,
		Router: r,
	})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

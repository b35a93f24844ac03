package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lookatme/backend/internal/admin"
	"github.com/lookatme/backend/internal/auth"
	"github.com/lookatme/backend/internal/config"
	"github.com/lookatme/backend/internal/friends"
	"github.com/lookatme/backend/internal/handlers"
	"github.com/lookatme/backend/internal/middleware"
	"github.com/lookatme/backend/internal/posts"
	"github.com/lookatme/backend/internal/repositories"
	"github.com/lookatme/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup releases connections opened here (the Redis client).
func buildDependencies(ctx context.Context, conn *sqlx.DB, cfg config.Config, reg *prometheus.Registry) (handlers.Dependencies, func(), error) {
	cleanup := func() {}

	sessionStore, closeSessions, err := newSessionStore(ctx, conn, cfg)
	if err != nil {
		return handlers.Dependencies{}, cleanup, err
	}
	cleanup = closeSessions

	var media handlers.MediaStorage
	if cfg.ObjectStore.Enabled() {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			cleanup()
			return handlers.Dependencies{}, func() {}, fmt.Errorf("configure media storage: %w", err)
		}
		media = s3Storage
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(conn.DB, cfg.DBDriver),
	)

	users := repositories.NewSQLUserRepository(conn)
	postRepo := repositories.NewSQLPostRepository(conn)
	limiterTTL := 10 * cfg.RateLimit.Window

	return handlers.Dependencies{
		DB:            conn,
		Users:         users,
		Sessions:      auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore),
		Friends:       friends.NewService(repositories.NewSQLFriendRepository(conn)),
		Posts:         posts.NewService(postRepo),
		Admin:         admin.NewService(users, postRepo),
		Media:         media,
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, limiterTTL),
		FriendLimiter: middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, limiterTTL),
		SecureCookies: !cfg.IsDevelopment(),
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, cleanup, nil
}

func newSessionStore(ctx context.Context, conn *sqlx.DB, cfg config.Config) (auth.SessionStore, func(), error) {
	switch cfg.SessionStore {
	case "redis":
		client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, func() {}, err
		}
		return auth.NewRedisSessionStore(client), func() { _ = client.Close() }, nil
	case "memory":
		return auth.NewInMemorySessionStore(), func() {}, nil
	default:
		return repositories.NewSQLSessionStore(conn), func() {}, nil
	}
}

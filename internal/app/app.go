package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lookatme/backend/internal/config"
	"github.com/lookatme/backend/internal/db"
	"github.com/lookatme/backend/internal/handlers"
	"github.com/lookatme/backend/internal/httpserver"
	"github.com/lookatme/backend/internal/logging"
	"github.com/lookatme/backend/internal/middleware"
)

const serviceName = "lookatme"

const usage = "expected command: serve, admin, migrate, seed, change-role, or list-users"

// Run bootstraps the LookAtMe backend application.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "serve":
		return serve(ctx, apiServer)
	case "admin":
		return serve(ctx, adminServer)
	case "migrate":
		return runMigrations(ctx, args[1:], out)
	case "seed":
		return runSeed(ctx, args[1:], out)
	case "change-role":
		return runChangeRole(ctx, args[1:], out)
	case "list-users":
		return runListUsers(ctx, out)
	default:
		return fmt.Errorf("unknown command %q: %s", args[0], usage)
	}
}

type serverKind int

const (
	apiServer serverKind = iota
	adminServer
)

func (k serverKind) String() string {
	if k == adminServer {
		return "admin"
	}
	return "api"
}

// runtime bundles what every command needs: configuration, logger and database.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	conn   *sqlx.DB
	close  func()
}

func bootstrap(ctx context.Context, logOut io.Writer) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, flush, err := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.Env,
		Writer:      logOut,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	conn, err := db.Connect(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		flush()
		return nil, err
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		conn:   conn,
		close: func() {
			if err := conn.Close(); err != nil {
				logger.Warn("close database", "error", err)
			}
			flush()
		},
	}, nil
}

func serve(ctx context.Context, kind serverKind) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	shutdownTracing, err := logging.SetupTracing(rt.cfg.TraceExporter, serviceName+"-"+kind.String(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			rt.logger.Warn("shutdown tracing", "error", err)
		}
	}()

	if err := db.MigrateUp(ctx, rt.conn, rt.cfg.DBDriver); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	deps, cleanup, err := buildDependencies(ctx, rt.conn, rt.cfg, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	handler, port := routes(kind, deps, rt.cfg, rt.logger, reg)
	return httpserver.New(kind.String(), port, handler, rt.logger).Run(ctx)
}

// routes builds the middleware chain for one server. Metrics wrap the mux directly so
// the matched pattern is visible; the request logger sits outside to see every status.
func routes(kind serverKind, deps handlers.Dependencies, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (http.Handler, int) {
	mux := http.NewServeMux()
	metrics := middleware.NewHTTPMetrics(reg, kind.String())

	if kind == adminServer {
		handlers.RegisterAdminRoutes(mux, deps)
		return middleware.RequestLogger(logger)(middleware.SecurityHeaders(metrics.Middleware(mux))), cfg.AdminPort
	}

	handlers.RegisterRoutes(mux, deps)
	return middleware.RequestLogger(logger)(metrics.Middleware(mux)), cfg.AppPort
}

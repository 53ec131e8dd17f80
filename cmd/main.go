/**
 * @description
 * This is the main entry point for the ledger service. It is responsible for
 * initializing all components of the service: configuration, logging, the ledger
 * store, the event producer, the login rate limiter, the ledger and identity
 * services, the optional depreciation poster and the HTTP server. It wires
 * everything together and shuts it down cleanly on SIGINT or SIGTERM.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - golang.org/x/sync/errgroup: Runs the HTTP server and scheduler side by side.
 * - go.uber.org/multierr: Collects errors from closing resources.
 * - internal/*: The service's packages.
 * - pkg/rabbitmq: Ledger event producer.
 */

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

	"github.com/joho/godotenv"
	"github.com/oikonomos/ledger-service/internal/api"
	"github.com/oikonomos/ledger-service/internal/app"
	"github.com/oikonomos/ledger-service/internal/auth"
	"github.com/oikonomos/ledger-service/internal/config"
	"github.com/oikonomos/ledger-service/internal/logger"
	"github.com/oikonomos/ledger-service/internal/scheduler"
	"github.com/oikonomos/ledger-service/internal/store"
	"github.com/oikonomos/ledger-service/internal/store/memory"
	"github.com/oikonomos/ledger-service/pkg/rabbitmq"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env for local development; in deployed environments variables come from the platform.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "level=fatal component=bootstrap msg=\"config load failed\" err=%v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	boot := logger.Component(log, "bootstrap")
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		boot.Warn().Err(envErr).Msg("failed to load .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		boot.Fatal().Err(err).Msg("ledger service stopped with error")
	}
	boot.Info().Msg("ledger service stopped")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) (err error) {
	boot := logger.Component(log, "bootstrap")
	boot.Info().Str("port", cfg.ServerPort).Str("store", cfg.StoreDriver).Msg("starting ledger service")

	repo, closeRepo, err := openRepository(ctx, cfg, boot)
	if err != nil {
		return err
	}
	defer closeRepo()

	var producer rabbitmq.Publisher
	if cfg.RabbitMQURL == "" {
		boot.Warn().Msg("RABBITMQ_URL not set; ledger events will only be logged")
	} else if p, perr := rabbitmq.NewEventProducer(cfg.RabbitMQURL, log); perr != nil {
		boot.Warn().Err(perr).Msg("rabbitmq producer unavailable; using fallback")
	} else {
		producer = p
		defer multierr.AppendInvoke(&err, multierr.Close(p))
		boot.Info().Str("url", rabbitmq.RedactURL(cfg.RabbitMQURL)).Msg("rabbitmq producer connected")
	}

	var limiter auth.RateLimiter
	if cfg.RedisURL == "" {
		boot.Warn().Msg("REDIS_URL not set; login rate limiting disabled")
	} else if client, rerr := auth.NewRedisClient(ctx, cfg.RedisURL); rerr != nil {
		boot.Warn().Err(rerr).Msg("redis unavailable; login rate limiting disabled")
	} else {
		limiter = auth.NewRedisRateLimiter(client, cfg.RedisRateLimitPrefix)
		defer multierr.AppendInvoke(&err, multierr.Close(client))
		boot.Info().Msg("redis connected")
	}

	ledger := app.NewService(repo, producer, log, app.ServiceConfig{
		EventExchange:   cfg.EventExchange,
		DisplayCurrency: cfg.DisplayCurrency,
	})
	identity, err := auth.NewService(repo, limiter, log, auth.Config{
		JWTSecret:              cfg.JWTSecret,
		AccessTokenTTL:         cfg.AccessTokenTTL(),
		RefreshTokenTTL:        cfg.RefreshTokenTTL(),
		LoginAttemptsPerMinute: cfg.LoginRateLimitPerMinute,
	})
	if err != nil {
		return err
	}
	created, err := identity.EnsureDefaultAdmin(ctx, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword)
	if err != nil {
		return err
	}
	if created {
		boot.Info().Str("email", cfg.DefaultAdminEmail).Msg("default admin created")
	}

	router := api.NewRouter(api.NewHandlers(ledger, identity), api.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, log)
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		boot.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.DepreciationSchedule != "" {
		poster := scheduler.NewScheduler(scheduler.NewJobs(ledger, log), log, cfg.DepreciationSchedule)
		g.Go(func() error { return poster.Run(gctx) })
	} else {
		boot.Info().Msg("DEPRECIATION_SCHEDULE not set; depreciation is posted on demand only")
	}

	return g.Wait()
}

func openRepository(ctx context.Context, cfg config.Config, boot zerolog.Logger) (store.Repository, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		boot.Warn().Msg("using the in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := store.OpenPostgresPool(ctx, cfg.DatabaseURL, store.DefaultPoolConfig())
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	boot.Info().Msg("database connected")
	return store.NewPostgresRepository(pool), pool.Close, nil
}

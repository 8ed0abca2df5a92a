package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"marginalia/app/internal/blog"
	"marginalia/app/internal/config"
	appdb "marginalia/app/internal/db"
	apphttp "marginalia/app/internal/http"
	applog "marginalia/app/internal/log"
	"marginalia/app/internal/session"
	"marginalia/app/internal/user"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	dbConn, err := appdb.Open(appdb.Options{Path: cfg.DBPath})
	if err != nil {
		return eris.Wrap(err, "opening database")
	}
	defer func() {
		if closeErr := appdb.Close(dbConn); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
		}
	}()

	if err := user.Migrate(ctx, dbConn, logger); err != nil {
		return eris.Wrap(err, "running user migrations")
	}
	if err := session.Migrate(ctx, dbConn, logger); err != nil {
		return eris.Wrap(err, "running session migrations")
	}
	if err := blog.Migrate(ctx, dbConn, logger); err != nil {
		return eris.Wrap(err, "running blog migrations")
	}

	users, err := user.NewStore(dbConn, logger)
	if err != nil {
		return eris.Wrap(err, "building user store")
	}

	if err := users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return eris.Wrap(err, "seeding admin account")
	}

	sessions, err := session.NewStore(dbConn, logger, cfg.SessionTTL)
	if err != nil {
		return eris.Wrap(err, "building session store")
	}

	if pruned, err := sessions.PruneExpired(ctx); err != nil {
		logger.WithError(err).Warn("pruning expired sessions")
	} else if pruned > 0 {
		logger.WithField("count", pruned).Info("pruned expired sessions")
	}

	repository, err := blog.NewRepository(dbConn, logger)
	if err != nil {
		return eris.Wrap(err, "building blog repository")
	}

	blogService, err := blog.NewService(repository, logger)
	if err != nil {
		return eris.Wrap(err, "creating blog service")
	}

	transport, err := apphttp.NewServer(apphttp.Options{
		BlogService: blogService,
		Users:       users,
		Sessions:    sessions,
		Database:    dbConn,
		Logger:      logger,
		SentryHub:   sentryHub,
		CookieTTL:   cfg.SessionTTL,
		RateLimiter: apphttp.RateLimiterSettings{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
			ClientTTL:         cfg.RateLimitTTL,
		},
	})
	if err != nil {
		return eris.Wrap(err, "initialising http transport")
	}

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort),
		Handler: transport.Handler(),
	}

	logger.WithFields(logrus.Fields{
		"addr": httpServer.Addr,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	logger.Info("http server shut down cleanly")
	return nil
}

// Command server runs the task API.
//
//	@title                      Task API
//	@version                    1.0
//	@description                Multi-tenant task management API with canonical success and error envelopes.
//	@BasePath                   /api
//	@securityDefinitions.apikey BearerAuth
//	@in                         header
//	@name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-task-backend/internal/auth"
	"github.com/tbourn/go-task-backend/internal/config"
	httpapi "github.com/tbourn/go-task-backend/internal/http"
	"github.com/tbourn/go-task-backend/internal/observability"
	"github.com/tbourn/go-task-backend/internal/repo"
	"github.com/tbourn/go-task-backend/internal/sysutil"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

// purgeInterval is how often expired idempotency records are deleted.
const purgeInterval = 15 * time.Minute

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogger("info", false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, observability.Build{
		Version:     Version,
		Environment: cfg.GinMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	tokens, err := auth.NewTokenIssuer(cfg.SecretKey, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer setup failed")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, tokens, cfg)

	go purgeIdempotency(ctx, db)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Str("api_base", cfg.APIBasePath).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		log.Error().Err(err).Str("addr", srv.Addr).Msg("listen failed")
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown error")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}

// purgeIdempotency deletes expired idempotency records until ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("expired idempotency records purged")
			}
		}
	}
}

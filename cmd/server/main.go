package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sabbir9535/BlinkChat/internal/assets"
	"github.com/Sabbir9535/BlinkChat/internal/config"
	"github.com/Sabbir9535/BlinkChat/internal/domain"
	"github.com/Sabbir9535/BlinkChat/internal/httpserver"
	"github.com/Sabbir9535/BlinkChat/internal/logger"
	"github.com/Sabbir9535/BlinkChat/internal/ratelimit"
	"github.com/Sabbir9535/BlinkChat/internal/security"
	"github.com/Sabbir9535/BlinkChat/internal/service"
	"github.com/Sabbir9535/BlinkChat/internal/store/postgres"
	"github.com/Sabbir9535/BlinkChat/internal/store/sqlite"
	"github.com/Sabbir9535/BlinkChat/internal/ws"
)

// @title           BlinkChat API
// @version         1.0
// @description     Direct messaging with encrypted message text and real-time delivery.

// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, users, messages, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	defer db.Close()

	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)
	encryptor, err := security.NewEncryptor([]byte(cfg.MessageSecret), cfg.LegacyFernetKeys)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryptor")
	}

	images, uploadDir, err := openAssets(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize asset storage")
	}

	limiter := openLimiter(ctx, cfg)

	registry := ws.NewRegistry()
	defer registry.Close()

	router := httpserver.NewRouter(httpserver.Deps{
		Auth:        service.NewAuthService(users, tokenSvc, passwordHasher),
		Messages:    service.NewMessageService(messages, users, encryptor, registry, images),
		Encryptor:   encryptor,
		Registry:    registry,
		Images:      images,
		Limiter:     limiter,
		UploadDir:   uploadDir,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Str("db", cfg.DBDriver).Msg("starting BlinkChat server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	registry.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStore(cfg *config.Config) (*sql.DB, domain.UserRepository, domain.MessageRepository, error) {
	if cfg.DBDriver == "postgres" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return db, postgres.NewUserRepo(db), postgres.NewMessageRepo(db), nil
	}

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := sqlite.Migrate(db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return db, sqlite.NewUserRepo(db), sqlite.NewMessageRepo(db), nil
}

// openAssets returns the image store and, for the local backend, the
// directory to serve under /uploads.
func openAssets(ctx context.Context, cfg *config.Config) (*assets.Store, string, error) {
	if cfg.S3.Enabled() {
		backend, err := assets.NewS3Backend(ctx, assets.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicURL:       cfg.S3.PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("images stored in S3")
		return assets.NewStore(backend), "", nil
	}

	backend, err := assets.NewLocalBackend(cfg.UploadDir, cfg.PublicBaseURL+"/uploads")
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("dir", backend.Dir()).Msg("images stored on local disk")
	return assets.NewStore(backend), backend.Dir(), nil
}

func openLimiter(ctx context.Context, cfg *config.Config) ratelimit.Limiter {
	if cfg.SendRatePerMinute <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, using in-process rate limiting")
		} else {
			return ratelimit.NewRedis(client, cfg.SendRatePerMinute, time.Minute)
		}
	}
	local := ratelimit.NewLocal(cfg.SendRatePerMinute, cfg.SendRatePerMinute)
	go local.RunPruner(ctx, 5*time.Minute, 10*time.Minute)
	return local
}

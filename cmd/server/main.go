// Command server runs the HTTP API and realtime gateway.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/stillpoint/serenity/internal/app"
	"github.com/stillpoint/serenity/internal/app/cache"
	"github.com/stillpoint/serenity/internal/app/gateway"
	"github.com/stillpoint/serenity/internal/app/httpapi"
	"github.com/stillpoint/serenity/internal/app/storage/postgres"
	"github.com/stillpoint/serenity/internal/auth"
	"github.com/stillpoint/serenity/internal/config"
	"github.com/stillpoint/serenity/internal/httputil"
	"github.com/stillpoint/serenity/internal/middleware"
	"github.com/stillpoint/serenity/internal/platform/migrations"
	"github.com/stillpoint/serenity/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("server").WithError(err).Error("configuration error")
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}).WithField("component", "server")

	httputil.SetDebug(!cfg.IsProduction())

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	var store app.Store
	var db *sql.DB

	if cfg.Database.DSN != "" {
		var err error
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrations.Apply(migrateCtx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		store = postgres.New(db)
		log.Info("using postgres storage")
	} else {
		log.Warn("no database configured, using in-memory storage")
	}

	contentCache := cache.New(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.TTL)*time.Second,
		log.WithField("component", "cache"),
	)
	defer contentCache.Close()

	tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenValidityDuration())

	application := app.New(app.Options{
		Store:  store,
		Cache:  contentCache,
		Tokens: tokens,
		Log:    log,
	})

	gw := gateway.New(tokens, application.GroupSessions, log.WithField("component", "gateway"),
		originChecker(cfg.Server.AllowedOrigin))

	router := httpapi.NewRouter(httpapi.Deps{
		Users:         application.Users,
		Meditations:   application.Meditations,
		Sessions:      application.Sessions,
		Assessments:   application.Assessments,
		Achievements:  application.Achievements,
		GroupSessions: application.GroupSessions,
		Friends:       application.Friends,
		Analytics:     application.Analytics,
		Cache:         application.Cache,
		Auth:          middleware.NewAuthMiddleware(tokens, log.WithField("component", "auth")),
		Gateway:       gw,
		RateLimit:     middleware.NewRateLimiter(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst),
		CORS:          middleware.NewCORSMiddleware(cfg.Server.AllowedOrigin),
		Log:           log.WithField("component", "httpapi"),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	// A second signal or a stuck shutdown must not hang forever.
	forced := time.AfterFunc(time.Duration(cfg.Server.ShutdownTimeout+5)*time.Second, func() {
		log.Error("shutdown timed out, forcing exit")
		os.Exit(1)
	})
	defer forced.Stop()

	gw.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// originChecker mirrors the CORS policy for websocket upgrades.
func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

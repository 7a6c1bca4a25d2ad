package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/example/delivery-tracking/internal/auth"
	"github.com/example/delivery-tracking/internal/config"
	httpapi "github.com/example/delivery-tracking/internal/http"
	"github.com/example/delivery-tracking/internal/ingest"
	"github.com/example/delivery-tracking/internal/locations"
	"github.com/example/delivery-tracking/internal/logging"
	"github.com/example/delivery-tracking/internal/notify"
	"github.com/example/delivery-tracking/internal/store"
	"github.com/example/delivery-tracking/internal/track"
	"github.com/example/delivery-tracking/internal/ws"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger("tracking-server", cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var db *sql.DB
	var directory store.Directory
	if cfg.PGDSN != "" {
		db, err = store.Open(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if cfg.RunMigrations {
			if err := runMigrations(db); err != nil {
				logger.Error("migration failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		directory = store.NewPostgres(db)
	} else {
		logger.Warn("PG_DSN not set; using in-memory datastore")
		directory = store.NewMemory()
	}

	var positions locations.Store
	switch cfg.PositionBackend {
	case "postgres":
		positions = locations.NewPostgres(db)
	case "redis":
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rc.Close()
		positions = locations.NewRedis(rc, cfg.RedisGeoKey)
	default:
		positions = locations.NewMemory()
	}

	oracle := track.NewOracle(directory)
	hub := track.NewHub(logger, oracle, directory, positions)

	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		hub.Producer = producer
	}

	resolver := auth.NewResolver(cfg.JWTSecret, directory)
	wsHandler := &ws.Handler{Hub: hub, Resolver: resolver, Log: logger}
	api := httpapi.NewServer(logger, hub, wsHandler, positions)
	if db != nil {
		api.Ready = func(r *http.Request) error { return db.PingContext(r.Context()) }
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AMQPURL != "" {
		consumer := notify.NewConsumer(cfg.AMQPURL, cfg.AMQPQueue, hub, logger)
		go consumer.Run(ctx)
	}

	// No per-request write timeout: it would sever long-lived tracking
	// sockets. The transport's own ping/pong deadlines police those.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	go func() {
		logger.Info("tracking server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func runMigrations(db *sql.DB) error {
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_tracking.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

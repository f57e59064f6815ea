package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"readshelf/internal/util"
	"readshelf/pkg/events"
	"readshelf/pkg/storage"
	"readshelf/pkg/store"
	"readshelf/services/library/internal/app"
	"readshelf/services/library/internal/config"
	"readshelf/services/library/internal/server"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}
	if sessionTTL <= 0 {
		sessionTTL = store.DefaultSessionTTL
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer db.Close()

	var revoker store.TokenRevoker
	if cfg.RedisAddr != "" {
		redisRevoker := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword, sessionTTL+jwtLeeway)
		if err := redisRevoker.Ping(ctx); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisRevoker.Close()
		revoker = redisRevoker
	} else {
		logger.Warn("REDIS_ADDR not set, token revocations are kept in memory")
		revoker = store.NewMemoryTokenRevoker()
	}
	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL, revoker, store.JWTOptions{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	objects, err := storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
		Region:    cfg.MinioRegion,
	})
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.Fatalf("failed to init event publisher: %v", err)
	}
	defer publisher.Close()

	appCore, err := app.New(app.Config{
		Store:          db,
		Sessions:       sessions,
		Objects:        objects,
		Events:         publisher,
		StoragePrefix:  cfg.StoragePrefix,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{App: appCore, TrustedProxies: trusted})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("library server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

const defaultAMQPExchange = "readshelf.events"

// newPublisher picks AMQP, then a Redis stream, then no publishing at all.
func newPublisher(cfg config.FileConfig) (events.Publisher, error) {
	switch {
	case cfg.AMQPURL != "":
		exchange := cfg.AMQPExchange
		if exchange == "" {
			exchange = defaultAMQPExchange
		}
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, exchange)
		if err != nil {
			return nil, err
		}
		slog.Info("publishing events over amqp", "exchange", exchange)
		return p, nil
	case cfg.EventsStream != "":
		p, err := events.NewRedisStreamPublisher(events.RedisStreamConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.EventsStream,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("publishing events to redis stream", "stream", cfg.EventsStream)
		return p, nil
	default:
		return events.NopPublisher{}, nil
	}
}

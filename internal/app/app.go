package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/telegram-auth/internal/config"
	"github.com/your-org/telegram-auth/internal/domain/repository"
	"github.com/your-org/telegram-auth/internal/domain/repository/memory"
	"github.com/your-org/telegram-auth/internal/domain/repository/postgres"
	redisrepo "github.com/your-org/telegram-auth/internal/domain/repository/redis"
	"github.com/your-org/telegram-auth/internal/events/kafka"
	httphandler "github.com/your-org/telegram-auth/internal/handler/http"
	"github.com/your-org/telegram-auth/internal/service"
	"github.com/your-org/telegram-auth/internal/ws"
)

// App holds every long-lived component of the service.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *goredis.Client
	producer   *kafka.Producer
	hub        *ws.Hub
	httpServer *http.Server
}

// New wires the full dependency graph. Redis and Kafka are optional:
// without Redis login codes live in process memory, without Kafka no
// auth events are published.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var redisClient *goredis.Client
	var codeRepo repository.LoginCodeRepository
	if cfg.Redis.Host != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		codeRepo = redisrepo.NewLoginCodeRepositoryRedis(redisClient, logger)
	} else {
		logger.Warn("Redis not configured, login codes will be stored in process memory")
		codeRepo = memory.NewLoginCodeRepositoryMemory()
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	}

	userRepo := postgres.NewUserRepositoryPostgres(pool)
	tokens := service.NewTokenService(&cfg.JWT)
	codes := service.NewLoginCodeService(codeRepo, cfg.LoginCode.TTL, logger)
	auth := service.NewAuthService(cfg, logger, userRepo, codes, tokens, producer)

	hub := ws.NewHub(logger)
	wsHandler := ws.NewHandler(hub, tokens, logger)
	authHandler := httphandler.NewAuthHandler(auth, tokens, hub, logger)
	router := httphandler.NewRouter(cfg, logger, authHandler, tokens, wsHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		hub:        hub,
		httpServer: httpServer,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go a.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	cancelHub()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("Kafka producer close failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("Redis close failed", zap.Error(err))
		}
	}
	a.pool.Close()

	// Give in-flight log writes a moment before the process exits.
	time.Sleep(50 * time.Millisecond)
	return nil
}

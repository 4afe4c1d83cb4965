package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/momentos-dulces/api/internal/config"
	"github.com/momentos-dulces/api/internal/database"
	"github.com/momentos-dulces/api/internal/logger"
	"github.com/momentos-dulces/api/internal/rate"
	"github.com/momentos-dulces/api/internal/router"
	"github.com/momentos-dulces/api/internal/ws"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.Init(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		zlog.Fatal("ping database", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The rate service degrades to DB reads without Redis, so a dead
		// cache is not fatal.
		zlog.Warn("redis unreachable, exchange rate cache disabled", zap.Error(err))
	}

	queries := database.New(pool)
	rateSvc := rate.NewService(queries, rate.NewRedisCache(redisClient))

	hub := ws.NewHub()
	go hub.Run()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(cfg, queries, pool, rateSvc, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

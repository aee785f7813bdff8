package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	c "github.com/Arish613/go-technician-sub001/cart-service/internal/cache"
	"github.com/Arish613/go-technician-sub001/cart-service/internal/catalog"
	"github.com/Arish613/go-technician-sub001/cart-service/internal/config"
	h "github.com/Arish613/go-technician-sub001/cart-service/internal/http"
	"github.com/Arish613/go-technician-sub001/cart-service/internal/publisher"
	s "github.com/Arish613/go-technician-sub001/cart-service/internal/service"
	"github.com/Arish613/go-technician-sub001/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

type bookingPublisher interface {
	s.BookingPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zl)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Service catalog
	repo, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		zl.Fatal("failed to open catalog", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}
	zl.Info("catalog ready", zap.String("db_path", cfg.Catalog.DBPath))

	// Session store
	var store c.CartStore
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zl.Fatal("redis connection failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		zl.Info("redis ping succeeded", zap.String("addr", cfg.Redis.Addr))
		store = c.NewRedisStore(redisClient, cfg.Cart.SessionTTL)
	} else {
		memStore := c.NewMemoryStore(cfg.Cart.SessionTTL)
		defer memStore.Close()
		zl.Warn("REDIS_ADDR not set, carts are kept in process memory")
		store = memStore
	}

	// Booking hand-off
	var pub bookingPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub = publisher.NewKafkaPublisher(zl, cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		zl.Info("publishing bookings to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	} else {
		pub = publisher.NewLogPublisher(zl)
		zl.Warn("KAFKA_BROKERS not set, bookings are only logged")
	}
	defer pub.Close()

	service := s.NewCartService(store, repo, pub, cfg.Cart.Currency, zl)
	cartHandler := h.NewCartHandler(service, repo, cfg.Cart.Currency, cfg.Server.RequestTimeout, cfg.Server.MaxRequestBodySize, zl)

	router := h.NewRouter(cartHandler, h.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		SessionTTL:     cfg.Cart.SessionTTL,
		SecureCookie:   cfg.IsProduction(),
	}, zl)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "cart-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("cart service starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down cart service...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	zl.Info("cart service stopped")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/crdb"
	mongoadapter "github.com/Laminito/event-app-pro-backend/internal/adapters/mongo"
	redisadapter "github.com/Laminito/event-app-pro-backend/internal/adapters/redis"
	"github.com/Laminito/event-app-pro-backend/internal/booking"
	"github.com/Laminito/event-app-pro-backend/internal/clock"
	"github.com/Laminito/event-app-pro-backend/internal/config"
	httphandler "github.com/Laminito/event-app-pro-backend/internal/http"
	"github.com/Laminito/event-app-pro-backend/internal/idempotency"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
	"github.com/Laminito/event-app-pro-backend/internal/rateLimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	notifications := mongoadapter.NewNotificationStore(mongoDB, logger)
	auditor := mongoadapter.NewScanAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	clk := clock.NewSystem()
	reservations := booking.NewReservationService(repo, clk, cfg.HoldTTL)
	fulfillment := booking.NewFulfillmentService(repo, clk)
	validation := booking.NewValidationService(repo, catalog, auditor, clk)

	handlers := httphandler.NewHandlers(cfg, repo, redisCache, catalog, notifications,
		reservations, fulfillment, validation, logger)

	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}

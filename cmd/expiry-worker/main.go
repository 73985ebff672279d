package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/crdb"
	"github.com/Laminito/event-app-pro-backend/internal/adapters/rabbit"
	"github.com/Laminito/event-app-pro-backend/internal/config"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

const sweepBatchSize = 100

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpiryWorker(repo, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.SweepEvery)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

// ExpiryWorker sweeps abandoned holds. Expiry is already enforced lazily at
// purchase time; the sweep exists so pending rows do not pile up and so
// customers get an expiry notification.
type ExpiryWorker struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewExpiryWorker(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired, err := w.repo.CancelExpiredReservations(ctx, now.UTC(), sweepBatchSize)
			if err != nil {
				w.logger.Error("failed to cancel expired reservations", err)
				continue
			}
			for _, res := range expired {
				if err := w.publishExpiredWithRetry(ctx, res); err != nil {
					w.logger.WithError(err).Error("failed to publish expiry after retries")
				}
			}
		}
	}
}

func (w *ExpiryWorker) publishExpiredWithRetry(ctx context.Context, res domain.Reservation) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"reservation_id": res.ID,
		"event_id":       res.EventID,
		"user_id":        res.UserID,
	})
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if err := w.rabbitPub.Publish(ctx, "reservation.expired", msg); err == nil {
			return nil
		}
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed after %d retries", maxRetries)
}

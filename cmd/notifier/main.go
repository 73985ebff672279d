package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/Laminito/event-app-pro-backend/internal/adapters/mongo"
	"github.com/Laminito/event-app-pro-backend/internal/adapters/rabbit"
	"github.com/Laminito/event-app-pro-backend/internal/config"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

const queue = "notifier.q"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	notifications := mongoadapter.NewNotificationStore(mongoClient.Database(cfg.MongoDB), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, queue, "order.completed", "reservation.expired")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := &Notifier{notifications: notifications, redis: redisClient, logger: logger}
	go n.Run(ctx, consumer)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}

// Notifier turns broker events into in-app notifications. Delivery is
// at-least-once; the seen-set in Redis drops replays.
type Notifier struct {
	notifications *mongoadapter.NotificationStore
	redis         *redisclient.Client
	logger        observability.Logger
}

func (n *Notifier) Run(ctx context.Context, consumer *rabbit.Consumer) {
	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		n.logger.Error("failed to start consuming", err)
		return
	}
	n.logger.Info("Notifier started")

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := n.handle(ctx, d); err != nil {
				n.logger.WithError(err).Error("failed to handle delivery")
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, d amqp.Delivery) error {
	if d.MessageId != "" {
		fresh, err := n.redis.SetNX(ctx, "seen:"+d.MessageId, 1, 24*time.Hour).Result()
		if err == nil && !fresh {
			return nil
		}
	}

	var payload struct {
		ReservationID uuid.UUID `json:"reservation_id"`
		EventID       uuid.UUID `json:"event_id"`
		UserID        uuid.UUID `json:"user_id"`
		Total         string    `json:"total"`
		Tickets       []string  `json:"tickets"`
	}
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		// Unparseable messages would redeliver forever; drop them.
		n.logger.WithError(err).Warn("dropping malformed delivery")
		return nil
	}

	data := map[string]any{
		"reservation_id": payload.ReservationID.String(),
		"event_id":       payload.EventID.String(),
	}

	switch d.RoutingKey {
	case "order.completed":
		return n.notifications.Insert(ctx, payload.UserID, "order_completed",
			"Your tickets are ready",
			"Your purchase is complete. Your tickets are available in your account.",
			data)
	case "reservation.expired":
		return n.notifications.Insert(ctx, payload.UserID, "reservation_expired",
			"Reservation expired",
			"Your reservation expired before payment. The tickets were released.",
			data)
	default:
		return nil
	}
}

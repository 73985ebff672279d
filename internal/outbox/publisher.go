package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/crdb"
	"github.com/Laminito/event-app-pro-backend/internal/adapters/rabbit"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

// Publisher drains the outbox table into RabbitMQ. Messages carry the
// dedupe key as MessageId, so at-least-once delivery is safe for consumers
// that deduplicate.
type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
	interval  time.Duration
	batchSize int
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{
		repo:      repo,
		rabbitPub: rabbitPub,
		logger:    logger,
		interval:  5 * time.Second,
		batchSize: 50,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				p.logger.Error("outbox drain failed", err)
			}
			p.reportLag(ctx)
		}
	}
}

// drain claims one batch inside a transaction so SKIP LOCKED keeps
// concurrent publishers off the same rows.
func (p *Publisher) drain(ctx context.Context) error {
	return p.repo.WithTx(ctx, func(ctx context.Context) error {
		records, err := p.repo.GetUnpublishedOutbox(ctx, p.batchSize)
		if err != nil {
			return err
		}
		for _, rec := range records {
			msg := amqp.Publishing{
				MessageId:   rec.DedupeKey,
				ContentType: "application/json",
				Timestamp:   rec.CreatedAt,
				Body:        rec.Payload,
			}
			if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
				// Leave the row NEW; the next tick retries it.
				p.logger.WithError(err).Error("publish outbox record")
				continue
			}
			if err := p.repo.MarkPublished(ctx, rec.ID, time.Now().UTC()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Publisher) reportLag(ctx context.Context) {
	age, err := p.repo.OldestUnpublishedAge(ctx, time.Now().UTC())
	if err != nil {
		return
	}
	observability.OutboxLag.Set(age.Seconds())
}

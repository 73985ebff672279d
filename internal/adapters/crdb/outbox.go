package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/booking"
)

// OutboxRecord is one pending notification, written transactionally with the
// commit that produced it.
type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string
	DedupeKey     string
}

func (r *Repository) InsertOutbox(ctx context.Context, ev booking.OutboxEvent) error {
	_, err := r.exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, uuid.New(), ev.AggregateType, ev.AggregateID, ev.EventType, ev.Payload, uuid.NewString())
	return errors.Wrap(err, "insert outbox")
}

// GetUnpublishedOutbox claims a batch of pending records; SKIP LOCKED lets
// multiple publishers run without stepping on each other.
func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "get unpublished outbox")
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType,
			&rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return errors.Wrap(err, "mark published")
}

// OldestUnpublishedAge feeds the outbox lag gauge; zero when the outbox is
// drained.
func (r *Repository) OldestUnpublishedAge(ctx context.Context, now time.Time) (time.Duration, error) {
	var createdAt *time.Time
	err := r.queryRow(ctx, `
		SELECT min(created_at) FROM outbox WHERE status = 'NEW'
	`).Scan(&createdAt)
	if err != nil {
		return 0, errors.Wrap(err, "oldest unpublished")
	}
	if createdAt == nil {
		return 0, nil
	}
	return now.Sub(*createdAt), nil
}

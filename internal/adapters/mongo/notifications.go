package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laminito/event-app-pro-backend/internal/domain"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

// NotificationStore persists in-app notifications written by the notifier
// consumer and read back by the HTTP layer.
type NotificationStore struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewNotificationStore(db *mongo.Database, logger observability.Logger) *NotificationStore {
	return &NotificationStore{
		coll:   db.Collection("notifications"),
		logger: logger,
	}
}

type NotificationDoc struct {
	ID        uuid.UUID `bson:"_id" json:"id"`
	UserID    uuid.UUID `bson:"user_id" json:"userId"`
	Type      string    `bson:"type" json:"type"`
	Title     string    `bson:"title" json:"title"`
	Message   string    `bson:"message" json:"message"`
	Data      bson.M    `bson:"data,omitempty" json:"data,omitempty"`
	Read      bool      `bson:"read" json:"read"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

func (n *NotificationStore) Insert(ctx context.Context, userID uuid.UUID, kind, title, message string, data map[string]any) error {
	doc := NotificationDoc{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		Data:      bson.M(data),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := n.coll.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert notification")
	}
	return nil
}

func (n *NotificationStore) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]NotificationDoc, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	q := bson.M{"user_id": userID}
	if unreadOnly {
		q["read"] = false
	}
	cur, err := n.coll.Find(ctx, q,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	var docs []NotificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode notifications")
	}
	return docs, nil
}

func (n *NotificationStore) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res, err := n.coll.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

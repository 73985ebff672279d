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

// CatalogRepository holds the descriptive side of events: titles, venues,
// imagery, publication state. Stock lives in the relational ledger.
type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("events"),
		logger: logger,
	}
}

type EventDoc struct {
	ID          uuid.UUID `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Category    string    `bson:"category" json:"category"`
	Date        time.Time `bson:"date" json:"date"`
	Time        string    `bson:"time" json:"time,omitempty"`
	Location    string    `bson:"location" json:"location"`
	ImageURL    string    `bson:"image_url" json:"imageUrl,omitempty"`
	OrganizerID uuid.UUID `bson:"organizer_id" json:"organizerId"`
	Tags        []string  `bson:"tags" json:"tags,omitempty"`
	Featured    bool      `bson:"featured" json:"featured"`
	Published   bool      `bson:"published" json:"published"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// ListFilter narrows the public catalog listing. Zero values mean "no
// constraint"; Published is forced true for non-organizer callers by the
// HTTP layer.
type ListFilter struct {
	Category      string
	Search        string
	From          *time.Time
	PublishedOnly bool
	Page          int
	PerPage       int
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.PublishedOnly {
		q["published"] = true
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Search != "" {
		q["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": f.Search, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": f.Search, "$options": "i"}},
			bson.M{"location": bson.M{"$regex": f.Search, "$options": "i"}},
		}
	}
	if f.From != nil {
		q["date"] = bson.M{"$gte": *f.From}
	}
	return q
}

// List returns one page of the catalog plus the unpaginated match count.
func (c *CatalogRepository) List(ctx context.Context, filter ListFilter) ([]EventDoc, int64, error) {
	q := filter.query()

	total, err := c.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count events")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))

	cur, err := c.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list events")
	}
	var events []EventDoc
	if err := cur.All(ctx, &events); err != nil {
		return nil, 0, errors.Wrap(err, "decode events")
	}
	return events, total, nil
}

func (c *CatalogRepository) GetEvent(ctx context.Context, id uuid.UUID) (*EventDoc, error) {
	var event EventDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get event")
	}
	return &event, nil
}

func (c *CatalogRepository) CreateEvent(ctx context.Context, event EventDoc) error {
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	if _, err := c.coll.InsertOne(ctx, event); err != nil {
		return errors.Wrap(err, "create event")
	}
	return nil
}

// UpdateEvent rewrites the catalog metadata of an event the organizer owns.
// Inventory is deliberately out of reach here.
func (c *CatalogRepository) UpdateEvent(ctx context.Context, id uuid.UUID, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := c.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "update event")
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *CatalogRepository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete event")
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *CatalogRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	return c.UpdateEvent(ctx, id, bson.M{"published": published})
}

func (c *CatalogRepository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]EventDoc, error) {
	cur, err := c.coll.Find(ctx, bson.M{"organizer_id": organizerID},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list organizer events")
	}
	var events []EventDoc
	if err := cur.All(ctx, &events); err != nil {
		return nil, errors.Wrap(err, "decode organizer events")
	}
	return events, nil
}

func (c *CatalogRepository) Featured(ctx context.Context, limit int) ([]EventDoc, error) {
	if limit < 1 || limit > 50 {
		limit = 6
	}
	cur, err := c.coll.Find(ctx, bson.M{"featured": true, "published": true},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, errors.Wrap(err, "list featured events")
	}
	var events []EventDoc
	if err := cur.All(ctx, &events); err != nil {
		return nil, errors.Wrap(err, "decode featured events")
	}
	return events, nil
}

// Categories lists the distinct categories present in the published catalog.
func (c *CatalogRepository) Categories(ctx context.Context) ([]string, error) {
	raw, err := c.coll.Distinct(ctx, "category", bson.M{"published": true})
	if err != nil {
		return nil, errors.Wrap(err, "distinct categories")
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Suggestions returns title prefixes for typeahead search.
func (c *CatalogRepository) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit < 1 || limit > 20 {
		limit = 8
	}
	cur, err := c.coll.Find(ctx,
		bson.M{"published": true, "title": bson.M{"$regex": "^" + prefix, "$options": "i"}},
		options.Find().SetProjection(bson.M{"title": 1}).SetLimit(int64(limit)))
	if err != nil {
		return nil, errors.Wrap(err, "search suggestions")
	}
	var docs []struct {
		Title string `bson:"title"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode suggestions")
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Title)
	}
	return out, nil
}

// EventOrganizer resolves the owning organizer for validation checks.
func (c *CatalogRepository) EventOrganizer(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	var doc struct {
		OrganizerID uuid.UUID `bson:"organizer_id"`
	}
	err := c.coll.FindOne(ctx, bson.M{"_id": eventID},
		options.FindOne().SetProjection(bson.M{"organizer_id": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return uuid.Nil, domain.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "get event organizer")
	}
	return doc.OrganizerID, nil
}

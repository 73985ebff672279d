package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laminito/event-app-pro-backend/internal/domain"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

// ScanAuditLogger keeps a trail of validation attempts at the venue door.
// Writes are best-effort: a scan still succeeds if the trail is down.
type ScanAuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewScanAuditLogger(db *mongo.Database, logger observability.Logger) *ScanAuditLogger {
	return &ScanAuditLogger{
		coll:   db.Collection("scan_audit"),
		logger: logger,
	}
}

type ScanAuditDoc struct {
	ID          uuid.UUID `bson:"_id"`
	TicketID    uuid.UUID `bson:"ticket_id"`
	ValidatorID uuid.UUID `bson:"validator_id"`
	Accepted    bool      `bson:"accepted"`
	Reason      string    `bson:"reason,omitempty"`
	ScannedAt   time.Time `bson:"scanned_at"`
}

func (a *ScanAuditLogger) RecordScan(ctx context.Context, ticketID, validatorID uuid.UUID, result domain.ScanResult) {
	doc := ScanAuditDoc{
		ID:          uuid.New(),
		TicketID:    ticketID,
		ValidatorID: validatorID,
		Accepted:    result.Valid,
		Reason:      result.Reason,
		ScannedAt:   time.Now().UTC(),
	}
	if _, err := a.coll.InsertOne(ctx, doc); err != nil {
		a.logger.Error("failed to record ticket scan", err)
	}
}

// ScansByTicket returns the scan history of one ticket, newest first.
func (a *ScanAuditLogger) ScansByTicket(ctx context.Context, ticketID uuid.UUID) ([]ScanAuditDoc, error) {
	cur, err := a.coll.Find(ctx, bson.M{"ticket_id": ticketID},
		options.Find().SetSort(bson.D{{Key: "scanned_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []ScanAuditDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

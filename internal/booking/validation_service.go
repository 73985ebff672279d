package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/clock"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

// ValidationService performs the scan-time valid -> used transition. Only the
// event's organizer or an admin may validate; rejections for used/cancelled
// tickets are structured results, not errors, and mutate nothing.
type ValidationService struct {
	store     Store
	organizer OrganizerDirectory
	auditor   ScanAuditor
	clock     clock.Clock
}

func NewValidationService(store Store, organizer OrganizerDirectory, auditor ScanAuditor, clk clock.Clock) *ValidationService {
	return &ValidationService{store: store, organizer: organizer, auditor: auditor, clock: clk}
}

func (v *ValidationService) Validate(ctx context.Context, ticketID uuid.UUID, validator Identity) (domain.ScanResult, *domain.Ticket, error) {
	var (
		result domain.ScanResult
		ticket *domain.Ticket
	)

	err := v.store.WithTx(ctx, func(txCtx context.Context) error {
		t, err := v.store.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		ticket = t

		if validator.Role != RoleAdmin {
			organizerID, err := v.organizer.EventOrganizer(txCtx, t.EventID)
			if err != nil {
				return err
			}
			if organizerID != validator.UserID {
				return domain.ErrForbidden
			}
		}

		result = t.Scan()
		if !result.Valid {
			return nil
		}

		now := v.clock.Now()
		if err := v.store.MarkTicketUsed(txCtx, t.ID, validator.UserID, now); err != nil {
			return err
		}
		t.Status = domain.TicketUsed
		t.UsedAt = &now
		t.UsedBy = &validator.UserID
		return nil
	})
	if err != nil {
		return domain.ScanResult{}, nil, err
	}

	label := "rejected"
	if result.Valid {
		label = "accepted"
	}
	observability.ValidationScans.WithLabelValues(label).Inc()
	if v.auditor != nil {
		v.auditor.RecordScan(ctx, ticketID, validator.UserID, result)
	}
	return result, ticket, nil
}

package crdb

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

const ticketColumns = `id, number, reservation_id, event_id, user_id, ticket_type, price,
	verification, status, used_at, used_by, customer_name, customer_email, customer_phone, created_at`

// InsertTicket relies on the tickets_number_key unique index for number
// uniqueness; a collision comes back as domain.ErrTicketNumberTaken so the
// caller can remint.
func (r *Repository) InsertTicket(ctx context.Context, t domain.Ticket) error {
	_, err := r.exec(ctx, `
		INSERT INTO tickets (id, number, reservation_id, event_id, user_id, ticket_type, price,
			verification, status, customer_name, customer_email, customer_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, t.ID, t.Number, t.ReservationID, t.EventID, t.UserID, t.TicketType, t.Price,
		t.Verification, t.Status, t.Customer.Name, t.Customer.Email, t.Customer.Phone, t.CreatedAt)
	if isUniqueViolation(err, "tickets_number_key") {
		return domain.ErrTicketNumberTaken
	}
	if err != nil {
		return errors.Wrap(err, "insert ticket")
	}
	return nil
}

func (r *Repository) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return r.getTicket(ctx, id, false)
}

func (r *Repository) GetTicketForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return r.getTicket(ctx, id, true)
}

func (r *Repository) getTicket(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	t, err := scanTicket(r.queryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get ticket")
	}
	return t, nil
}

// MarkTicketUsed performs the one-way valid -> used transition.
func (r *Repository) MarkTicketUsed(ctx context.Context, id, validator uuid.UUID, at time.Time) error {
	tag, err := r.exec(ctx, `
		UPDATE tickets SET status = $2, used_at = $3, used_by = $4
		WHERE id = $1 AND status = $5
	`, id, domain.TicketUsed, at, validator, domain.TicketValid)
	if err != nil {
		return errors.Wrap(err, "mark ticket used")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) TicketsByReservation(ctx context.Context, reservationID uuid.UUID) ([]domain.Ticket, error) {
	rows, err := r.query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE reservation_id = $1 ORDER BY created_at, number
	`, reservationID)
	if err != nil {
		return nil, errors.Wrap(err, "tickets by reservation")
	}
	return collectTickets(rows)
}

// TicketsByUser lists a user's tickets, newest first, optionally filtered by
// status.
func (r *Repository) TicketsByUser(ctx context.Context, userID uuid.UUID, status *domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = $1`
	args := []any{userID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "tickets by user")
	}
	return collectTickets(rows)
}

// TicketsByEvents is the organizer view across their events.
func (r *Repository) TicketsByEvents(ctx context.Context, eventIDs []uuid.UUID, status *domain.TicketStatus, limit, offset int) ([]domain.Ticket, int, error) {
	countQuery := `SELECT count(*) FROM tickets WHERE event_id = ANY($1)`
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE event_id = ANY($1)`
	args := []any{eventIDs}
	if status != nil {
		countQuery += ` AND status = $2`
		query += ` AND status = $2`
		args = append(args, *status)
	}

	var total int
	if err := r.queryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count tickets by events")
	}

	query += ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "tickets by events")
	}
	tickets, err := collectTickets(rows)
	return tickets, total, err
}

func (r *Repository) CountTicketsByEvents(ctx context.Context, eventIDs []uuid.UUID) (int, error) {
	var count int
	err := r.queryRow(ctx, `
		SELECT count(*) FROM tickets WHERE event_id = ANY($1)
	`, eventIDs).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "count tickets")
	}
	return count, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(&t.ID, &t.Number, &t.ReservationID, &t.EventID, &t.UserID, &t.TicketType,
		&t.Price, &t.Verification, &t.Status, &t.UsedAt, &t.UsedBy,
		&t.Customer.Name, &t.Customer.Email, &t.Customer.Phone, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	var out []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

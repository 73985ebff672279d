package crdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/crdb"
	"github.com/Laminito/event-app-pro-backend/internal/domain"
)

func startRepo(t *testing.T) *crdb.Repository {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "26257")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, "postgresql://root@"+host+":"+port.Port()+"/defaultdb?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := crdb.NewRepository(pool)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func seedEvent(t *testing.T, repo *crdb.Repository, remaining int) uuid.UUID {
	t.Helper()
	eventID := uuid.New()
	err := repo.SetupInventory(context.Background(), eventID, []domain.TicketType{
		{Label: "VIP", Price: decimal.NewFromInt(150), Total: remaining},
		{Label: "Standard", Price: decimal.NewFromInt(50), Total: 100},
	})
	require.NoError(t, err)
	return eventID
}

func TestRepository_InventoryLedger(t *testing.T) {
	repo := startRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, repo, 2)

	inv, err := repo.EventInventory(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, inv.Types, 2)
	assert.Equal(t, "VIP", inv.Types[0].Label)
	assert.Equal(t, 2, inv.Types[0].Remaining)
	assert.Equal(t, 0, inv.Sold)

	err = repo.WithTx(ctx, func(ctx context.Context) error {
		if err := repo.DecrementRemaining(ctx, eventID, "VIP", 2); err != nil {
			return err
		}
		return repo.IncrementSold(ctx, eventID, 2)
	})
	require.NoError(t, err)

	// Stock is exhausted now: the conditional update must refuse.
	err = repo.WithTx(ctx, func(ctx context.Context) error {
		return repo.DecrementRemaining(ctx, eventID, "VIP", 1)
	})
	assert.ErrorIs(t, err, domain.ErrTicketsUnavailable)

	err = repo.WithTx(ctx, func(ctx context.Context) error {
		return repo.DecrementRemaining(ctx, eventID, "Backstage", 1)
	})
	assert.ErrorIs(t, err, domain.ErrTicketsUnavailable)

	inv, err = repo.EventInventory(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Types[0].Remaining)
	assert.Equal(t, 2, inv.Sold)

	_, err = repo.EventInventory(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_FailedTxLeavesNoPartialDecrement(t *testing.T) {
	repo := startRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, repo, 5)

	err := repo.WithTx(ctx, func(ctx context.Context) error {
		if err := repo.DecrementRemaining(ctx, eventID, "VIP", 3); err != nil {
			return err
		}
		// Second line item oversells: whole order must roll back.
		return repo.DecrementRemaining(ctx, eventID, "VIP", 3)
	})
	require.ErrorIs(t, err, domain.ErrTicketsUnavailable)

	inv, err := repo.EventInventory(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 5, inv.Types[0].Remaining, "rollback must undo the first decrement")
}

func TestRepository_ReservationLifecycle(t *testing.T) {
	repo := startRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, repo, 5)

	expires := time.Now().UTC().Add(15 * time.Minute)
	res := domain.Reservation{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		EventID: eventID,
		Items: []domain.LineItem{
			{TicketType: "VIP", Quantity: 2, UnitPrice: decimal.NewFromInt(150), Subtotal: decimal.NewFromInt(300)},
		},
		Total:         decimal.NewFromInt(300),
		Status:        domain.ReservationPending,
		PaymentStatus: domain.PaymentPending,
		ExpiresAt:     &expires,
		Customer:      domain.CustomerInfo{Name: "Awa", Email: "awa@example.com"},
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.CreateReservation(ctx, res))

	fetched, err := repo.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationPending, fetched.Status)
	require.Len(t, fetched.Items, 1)
	assert.True(t, fetched.Total.Equal(decimal.NewFromInt(300)))
	require.NotNil(t, fetched.ExpiresAt)

	err = repo.WithTx(ctx, func(ctx context.Context) error {
		return repo.CompleteReservation(ctx, res.ID, "card", domain.CustomerInfo{Name: "Awa", Email: "awa@example.com"})
	})
	require.NoError(t, err)

	fetched, err = repo.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCompleted, fetched.Status)
	assert.Equal(t, domain.PaymentPaid, fetched.PaymentStatus)
	assert.Nil(t, fetched.ExpiresAt)

	// Completing twice is refused by the status guard.
	err = repo.WithTx(ctx, func(ctx context.Context) error {
		return repo.CompleteReservation(ctx, res.ID, "card", domain.CustomerInfo{})
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetReservation(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepository_TicketNumberUniqueIndex(t *testing.T) {
	repo := startRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, repo, 5)

	expires := time.Now().UTC().Add(15 * time.Minute)
	res := domain.Reservation{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		EventID:       eventID,
		Items:         []domain.LineItem{{TicketType: "VIP", Quantity: 2, UnitPrice: decimal.NewFromInt(150), Subtotal: decimal.NewFromInt(300)}},
		Total:         decimal.NewFromInt(300),
		Status:        domain.ReservationPending,
		PaymentStatus: domain.PaymentPending,
		ExpiresAt:     &expires,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.CreateReservation(ctx, res))

	mk := func(number string) domain.Ticket {
		id := uuid.New()
		return domain.Ticket{
			ID:            id,
			Number:        number,
			ReservationID: res.ID,
			EventID:       eventID,
			UserID:        res.UserID,
			TicketType:    "VIP",
			Price:         decimal.NewFromInt(150),
			Verification:  domain.NewVerificationPayload(id, time.Now()).Encode(),
			Status:        domain.TicketValid,
			CreatedAt:     time.Now().UTC(),
		}
	}

	require.NoError(t, repo.InsertTicket(ctx, mk("TKT-20260831-00001")))
	err := repo.InsertTicket(ctx, mk("TKT-20260831-00001"))
	assert.ErrorIs(t, err, domain.ErrTicketNumberTaken)
	require.NoError(t, repo.InsertTicket(ctx, mk("TKT-20260831-00002")))

	tickets, err := repo.TicketsByReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	status := domain.TicketValid
	mine, err := repo.TicketsByUser(ctx, res.UserID, &status, 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	// valid -> used, once.
	target := tickets[0]
	validator := uuid.New()
	err = repo.WithTx(ctx, func(ctx context.Context) error {
		return repo.MarkTicketUsed(ctx, target.ID, validator, time.Now().UTC())
	})
	require.NoError(t, err)

	err = repo.WithTx(ctx, func(ctx context.Context) error {
		return repo.MarkTicketUsed(ctx, target.ID, validator, time.Now().UTC())
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "used ticket cannot be marked again")

	used, err := repo.GetTicket(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketUsed, used.Status)
	require.NotNil(t, used.UsedAt)
	require.NotNil(t, used.UsedBy)
	assert.Equal(t, validator, *used.UsedBy)
}

func TestRepository_CancelExpiredReservations(t *testing.T) {
	repo := startRepo(t)
	ctx := context.Background()
	eventID := seedEvent(t, repo, 5)

	stale := time.Now().UTC().Add(-time.Minute)
	fresh := time.Now().UTC().Add(15 * time.Minute)

	mkRes := func(expiry time.Time) uuid.UUID {
		res := domain.Reservation{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			EventID:       eventID,
			Items:         []domain.LineItem{{TicketType: "VIP", Quantity: 1, UnitPrice: decimal.NewFromInt(150), Subtotal: decimal.NewFromInt(150)}},
			Total:         decimal.NewFromInt(150),
			Status:        domain.ReservationPending,
			PaymentStatus: domain.PaymentPending,
			ExpiresAt:     &expiry,
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, repo.CreateReservation(ctx, res))
		return res.ID
	}

	expiredID := mkRes(stale)
	liveID := mkRes(fresh)

	cancelled, err := repo.CancelExpiredReservations(ctx, time.Now().UTC(), 100)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, expiredID, cancelled[0].ID)

	swept, err := repo.GetReservation(ctx, expiredID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, swept.Status)
	assert.Nil(t, swept.ExpiresAt)

	live, err := repo.GetReservation(ctx, liveID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationPending, live.Status)
}

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/crdb"
	mongoadapter "github.com/Laminito/event-app-pro-backend/internal/adapters/mongo"
	redisadapter "github.com/Laminito/event-app-pro-backend/internal/adapters/redis"
	"github.com/Laminito/event-app-pro-backend/internal/booking"
	"github.com/Laminito/event-app-pro-backend/internal/clock"
	"github.com/Laminito/event-app-pro-backend/internal/config"
	httphandler "github.com/Laminito/event-app-pro-backend/internal/http"
	"github.com/Laminito/event-app-pro-backend/internal/idempotency"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
	"github.com/Laminito/event-app-pro-backend/internal/rateLimit"
)

type testEnv struct {
	server  *httptest.Server
	repo    *crdb.Repository
	catalog *mongoadapter.CatalogRepository
}

func startEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForExec([]string{"mongosh", "--eval", "db.runCommand('ping').ok"}),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { mongoContainer.Terminate(ctx) })

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	crdbHost, err := crdbContainer.Host(ctx)
	require.NoError(t, err)
	crdbPort, err := crdbContainer.MappedPort(ctx, "26257")
	require.NoError(t, err)
	mongoHost, err := mongoContainer.Host(ctx)
	require.NoError(t, err)
	mongoPort, err := mongoContainer.MappedPort(ctx, "27017")
	require.NoError(t, err)
	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	cfg := &config.Config{
		DatabaseDSN: "postgresql://root@" + crdbHost + ":" + crdbPort.Port() + "/defaultdb?sslmode=disable",
		MongoURI:    "mongodb://" + mongoHost + ":" + mongoPort.Port(),
		MongoDB:     "eventapp_test",
		RedisAddr:   redisHost + ":" + redisPort.Port(),
		HoldTTL:     15 * time.Minute,
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	repo := crdb.NewRepository(pool)
	require.NoError(t, repo.Migrate(ctx))

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	require.NoError(t, err)
	t.Cleanup(func() { mongoClient.Disconnect(ctx) })
	mongoDB := mongoClient.Database(cfg.MongoDB)

	logger := observability.NewLogger()
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	notifications := mongoadapter.NewNotificationStore(mongoDB, logger)
	auditor := mongoadapter.NewScanAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	clk := clock.NewSystem()
	reservations := booking.NewReservationService(repo, clk, cfg.HoldTTL)
	fulfillment := booking.NewFulfillmentService(repo, clk)
	validation := booking.NewValidationService(repo, catalog, auditor, clk)

	handlers := httphandler.NewHandlers(cfg, repo, redisCache, catalog, notifications,
		reservations, fulfillment, validation, logger)
	router := httphandler.SetupRouter(handlers, logger, rl, idemp)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, repo: repo, catalog: catalog}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, userID uuid.UUID, role string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
		req.Header.Set("X-User-Role", role)
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.New().String())
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestIntegration_ReservePurchaseValidate(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	env := startEnv(t)

	organizerID := uuid.New()
	userID := uuid.New()

	// Organizer creates and publishes an event.
	resp, body := env.do(t, http.MethodPost, "/v1/organizer/events", map[string]any{
		"title":    "Festival de Jazz",
		"category": "music",
		"date":     time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339),
		"location": "Dakar Arena",
		"ticket_types": []map[string]any{
			{"label": "VIP", "price": "150.00", "total": 10},
			{"label": "Standard", "price": "50.00", "total": 100},
		},
	}, organizerID, "organizer")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	eventID := body["event"].(map[string]any)["id"].(string)

	resp, _ = env.do(t, http.MethodPost, "/v1/organizer/events/"+eventID+"/publish", nil, organizerID, "organizer")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Public catalog shows the event with availability.
	resp, body = env.do(t, http.MethodGet, "/v1/events/"+eventID, nil, uuid.Nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	availability := body["availability"].([]any)
	require.Len(t, availability, 2)

	// User reserves 2 VIP tickets; the ledger must not move yet.
	resp, body = env.do(t, http.MethodPost, "/v1/tickets/reserve", map[string]any{
		"event_id": eventID,
		"items":    []map[string]any{{"type": "VIP", "quantity": 2}},
		"customer": map[string]any{"name": "Awa Diop", "email": "awa@example.com"},
	}, userID, "user")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reservationID := body["id"].(string)
	assert.Equal(t, "pending", body["status"])
	assert.NotEmpty(t, body["expires_at"])

	inv, err := env.repo.EventInventory(context.Background(), uuid.MustParse(eventID))
	require.NoError(t, err)
	assert.Equal(t, 10, inv.Types[0].Remaining, "hold must not decrement stock")

	// Purchase commits the reservation and mints tickets.
	resp, body = env.do(t, http.MethodPost, "/v1/tickets/purchase", map[string]any{
		"reservation_id": reservationID,
		"payment_method": "card",
		"customer":       map[string]any{"name": "Awa Diop", "email": "awa@example.com"},
	}, userID, "user")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tickets := body["tickets"].([]any)
	require.Len(t, tickets, 2)
	firstTicket := tickets[0].(map[string]any)
	assert.Regexp(t, `^TKT-\d{8}-\d{5}$`, firstTicket["number"])
	assert.NotEmpty(t, firstTicket["verification"])

	inv, err = env.repo.EventInventory(context.Background(), uuid.MustParse(eventID))
	require.NoError(t, err)
	assert.Equal(t, 8, inv.Types[0].Remaining)
	assert.Equal(t, 2, inv.Sold)

	// Retrying the purchase replays the same order without double-selling.
	resp, body = env.do(t, http.MethodPost, "/v1/tickets/purchase", map[string]any{
		"reservation_id": reservationID,
		"payment_method": "card",
	}, userID, "user")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["tickets"].([]any), 2)

	inv, err = env.repo.EventInventory(context.Background(), uuid.MustParse(eventID))
	require.NoError(t, err)
	assert.Equal(t, 8, inv.Types[0].Remaining, "replay must not decrement again")
	assert.Equal(t, 2, inv.Sold)

	// Owner sees their tickets.
	resp, body = env.do(t, http.MethodGet, "/v1/tickets/my-tickets", nil, userID, "user")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["tickets"].([]any), 2)

	ticketID := firstTicket["id"].(string)

	// A random user cannot validate.
	resp, _ = env.do(t, http.MethodPost, "/v1/tickets/"+ticketID+"/validate", nil, uuid.New(), "user")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The organizer validates; first scan accepted, second rejected.
	resp, body = env.do(t, http.MethodPost, "/v1/tickets/"+ticketID+"/validate", nil, organizerID, "organizer")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])

	resp, body = env.do(t, http.MethodPost, "/v1/tickets/"+ticketID+"/validate", nil, organizerID, "organizer")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "already used", body["reason"])
}

func TestIntegration_OversellRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	env := startEnv(t)

	organizerID := uuid.New()

	resp, body := env.do(t, http.MethodPost, "/v1/organizer/events", map[string]any{
		"title":    "Sold Out Show",
		"category": "music",
		"date":     time.Now().Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339),
		"location": "Petit Theatre",
		"ticket_types": []map[string]any{
			{"label": "Standard", "price": "25.00", "total": 1},
		},
	}, organizerID, "organizer")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	eventID := body["event"].(map[string]any)["id"].(string)

	// Two users hold the same last ticket; holds never fail on stock.
	reserve := func(userID uuid.UUID) string {
		resp, body := env.do(t, http.MethodPost, "/v1/tickets/reserve", map[string]any{
			"event_id": eventID,
			"items":    []map[string]any{{"type": "Standard", "quantity": 1}},
		}, userID, "user")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return body["id"].(string)
	}
	userA, userB := uuid.New(), uuid.New()
	resA := reserve(userA)
	resB := reserve(userB)

	// First purchase wins.
	resp, _ = env.do(t, http.MethodPost, "/v1/tickets/purchase", map[string]any{
		"reservation_id": resA,
		"payment_method": "card",
	}, userA, "user")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Second purchase is refused at commit time.
	resp, body = env.do(t, http.MethodPost, "/v1/tickets/purchase", map[string]any{
		"reservation_id": resB,
		"payment_method": "card",
	}, userB, "user")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "TICKETS_UNAVAILABLE", body["error"].(map[string]any)["code"])

	inv, err := env.repo.EventInventory(context.Background(), uuid.MustParse(eventID))
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Types[0].Remaining)
	assert.Equal(t, 1, inv.Sold)
}

package http

import (
	"net/http"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/crdb"
	"github.com/Laminito/event-app-pro-backend/internal/adapters/mongo"
	redisadapter "github.com/Laminito/event-app-pro-backend/internal/adapters/redis"
	"github.com/Laminito/event-app-pro-backend/internal/booking"
	"github.com/Laminito/event-app-pro-backend/internal/config"
	"github.com/Laminito/event-app-pro-backend/internal/observability"
)

type Handlers struct {
	cfg           *config.Config
	repo          *crdb.Repository
	cache         *redisadapter.Cache
	catalog       *mongo.CatalogRepository
	notifications *mongo.NotificationStore
	reservations  *booking.ReservationService
	fulfillment   *booking.FulfillmentService
	validation    *booking.ValidationService
	logger        observability.Logger
}

func NewHandlers(
	cfg *config.Config,
	repo *crdb.Repository,
	cache *redisadapter.Cache,
	catalog *mongo.CatalogRepository,
	notifications *mongo.NotificationStore,
	reservations *booking.ReservationService,
	fulfillment *booking.FulfillmentService,
	validation *booking.ValidationService,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		cfg:           cfg,
		repo:          repo,
		cache:         cache,
		catalog:       catalog,
		notifications: notifications,
		reservations:  reservations,
		fulfillment:   fulfillment,
		validation:    validation,
		logger:        logger,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

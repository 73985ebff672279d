package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Laminito/event-app-pro-backend/internal/adapters/mongo"
)

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifications, err := h.notifications.ListByUser(r.Context(), id.UserID, unreadOnly, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if notifications == nil {
		notifications = []mongo.NotificationDoc{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	notifID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid notification id")
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id.UserID, notifID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

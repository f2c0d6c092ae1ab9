package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
}

func NewNotificationHandler(service notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceNotifications, auth.ActionRead)).Get("/notifications", h.handleList)
	router.With(authz.Authorize(auth.ResourceNotifications, auth.ActionUpdate)).Post("/notifications/read-all", h.handleMarkAllRead)
	router.With(authz.Authorize(auth.ResourceNotifications, auth.ActionUpdate)).Post("/notifications/{id}/read", h.handleMarkRead)
}

func (h *NotificationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	unread := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid unread filter")
			return
		}
		unread = v
	}

	list, err := h.service.List(r.Context(), principal(r).UserID, unread)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list notifications")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *NotificationHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.MarkRead(r.Context(), principal(r).UserID, id); err != nil {
		respondWithServiceError(w, err, "Failed to mark notification as read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkAllRead(r.Context(), principal(r).UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to mark notifications as read")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

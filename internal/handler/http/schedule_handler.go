package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/schedule"
)

type ScheduleRequest struct {
	StaffID   uuid.UUID `json:"staff" validate:"required"`
	Day       string    `json:"day_of_week" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime string    `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string    `json:"end_time" validate:"required,datetime=15:04"`
	IsActive  *bool     `json:"is_active"`
}

type ScheduleHandler struct {
	service  schedule.Service
	validate *validator.Validate
}

func NewScheduleHandler(service schedule.Service) *ScheduleHandler {
	return &ScheduleHandler{service: service, validate: newValidator()}
}

func (h *ScheduleHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceStaffSchedules, auth.ActionRead)).Get("/staff-schedules", h.handleList)
	router.With(authz.Authorize(auth.ResourceStaffSchedules, auth.ActionCreate)).Post("/staff-schedules", h.handleCreate)
	router.With(authz.Authorize(auth.ResourceStaffSchedules, auth.ActionRead)).Get("/staff-schedules/{id}", h.handleGet)
	router.With(authz.Authorize(auth.ResourceStaffSchedules, auth.ActionUpdate)).Put("/staff-schedules/{id}", h.handleUpdate)
	router.With(authz.Authorize(auth.ResourceStaffSchedules, auth.ActionDelete)).Delete("/staff-schedules/{id}", h.handleDelete)
}

func (req ScheduleRequest) toSchedule(id uuid.UUID) *schedule.Schedule {
	return &schedule.Schedule{
		ID:        id,
		StaffID:   req.StaffID,
		Day:       schedule.Day(req.Day),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsActive:  boolOr(req.IsActive, true),
	}
}

func (h *ScheduleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	staffID, ok := parseUUIDQuery(w, r, "staff")
	if !ok {
		return
	}
	list, err := h.service.ListSchedules(r.Context(), schedule.Filter{
		StaffID: staffID,
		Day:     schedule.Day(r.URL.Query().Get("day_of_week")),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to list schedules")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *ScheduleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	sc, err := h.service.CreateSchedule(r.Context(), req.toSchedule(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create schedule")
		return
	}
	respondWithJSON(w, http.StatusCreated, sc)
}

func (h *ScheduleHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	sc, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get schedule")
		return
	}
	respondWithJSON(w, http.StatusOK, sc)
}

func (h *ScheduleHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req ScheduleRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	sc, err := h.service.UpdateSchedule(r.Context(), req.toSchedule(id))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update schedule")
		return
	}
	respondWithJSON(w, http.StatusOK, sc)
}

func (h *ScheduleHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteSchedule(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/reservation"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type TableRequest struct {
	Number   string `json:"number" validate:"required,max=10"`
	Capacity int    `json:"capacity" validate:"required,gte=1"`
	Status   string `json:"status" validate:"omitempty,oneof=available occupied reserved maintenance"`
	Location string `json:"location" validate:"max=100"`
	IsActive *bool  `json:"is_active"`
}

type CreateReservationRequest struct {
	TableID         uuid.UUID `json:"table" validate:"required"`
	Date            string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string    `json:"time" validate:"required,datetime=15:04"`
	Duration        int       `json:"duration" validate:"omitempty,gte=15,lte=480"`
	PartySize       int       `json:"party_size" validate:"required,gte=1"`
	SpecialRequests string    `json:"special_requests"`
}

type UpdateReservationRequest struct {
	Date            *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time            *string `json:"time" validate:"omitempty,datetime=15:04"`
	Duration        *int    `json:"duration" validate:"omitempty,gte=15,lte=480"`
	PartySize       *int    `json:"party_size" validate:"omitempty,gte=1"`
	Status          *string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed"`
	SpecialRequests *string `json:"special_requests"`
}

type ReservationHandler struct {
	service  reservation.Service
	validate *validator.Validate
}

func NewReservationHandler(service reservation.Service) *ReservationHandler {
	return &ReservationHandler{service: service, validate: newValidator()}
}

func (h *ReservationHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceTables, auth.ActionRead)).Get("/tables", h.handleListTables)
	router.With(authz.Authorize(auth.ResourceTables, auth.ActionCreate)).Post("/tables", h.handleCreateTable)
	router.With(authz.Authorize(auth.ResourceTables, auth.ActionRead)).Get("/tables/{id}", h.handleGetTable)
	router.With(authz.Authorize(auth.ResourceTables, auth.ActionUpdate)).Put("/tables/{id}", h.handleUpdateTable)
	router.With(authz.Authorize(auth.ResourceTables, auth.ActionDelete)).Delete("/tables/{id}", h.handleDeleteTable)

	router.With(authz.Authorize(auth.ResourceReservations, auth.ActionRead)).Get("/reservations", h.handleListReservations)
	router.With(authz.Authorize(auth.ResourceReservations, auth.ActionCreate)).Post("/reservations", h.handleCreateReservation)
	router.With(authz.Authorize(auth.ResourceReservations, auth.ActionRead)).Get("/reservations/{id}", h.handleGetReservation)
	router.With(authz.Authorize(auth.ResourceReservations, auth.ActionUpdate)).Patch("/reservations/{id}", h.handleUpdateReservation)
	router.With(authz.Authorize(auth.ResourceReservations, auth.ActionDelete)).Delete("/reservations/{id}", h.handleDeleteReservation)
}

// wallClock joins a date and a time of day into a zone-less wall clock value.
func wallClock(date, clock string) (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, time.UTC)
}

func (req TableRequest) toTable(id uuid.UUID) *reservation.Table {
	return &reservation.Table{
		ID:       id,
		Number:   req.Number,
		Capacity: req.Capacity,
		Status:   reservation.TableStatus(req.Status),
		Location: req.Location,
		IsActive: boolOr(req.IsActive, true),
	}
}

func (h *ReservationHandler) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.ListTables(r.Context(), principal(r))
	if err != nil {
		respondWithServiceError(w, err, "Failed to list tables")
		return
	}
	respondWithJSON(w, http.StatusOK, tables)
}

func (h *ReservationHandler) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req TableRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	t, err := h.service.CreateTable(r.Context(), req.toTable(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create table")
		return
	}
	respondWithJSON(w, http.StatusCreated, t)
}

func (h *ReservationHandler) handleGetTable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.service.GetTable(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get table")
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (h *ReservationHandler) handleUpdateTable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req TableRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	t, err := h.service.UpdateTable(r.Context(), req.toTable(id))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update table")
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

func (h *ReservationHandler) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteTable(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete table")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReservationHandler) handleListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tableID, ok := parseUUIDQuery(w, r, "table")
	if !ok {
		return
	}
	filter := reservation.Filter{
		TableID: tableID,
		Status:  reservation.Status(q.Get("status")),
	}
	if raw := q.Get("date"); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date filter")
			return
		}
		filter.Date = &d
	}

	list, err := h.service.ListReservations(r.Context(), principal(r), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list reservations")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *ReservationHandler) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	startsAt, err := wallClock(req.Date, req.Time)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid date or time")
		return
	}

	res, err := h.service.CreateReservation(r.Context(), principal(r), reservation.CreateInput{
		TableID:         req.TableID,
		StartsAt:        startsAt,
		Duration:        req.Duration,
		PartySize:       req.PartySize,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create reservation")
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

func (h *ReservationHandler) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	res, err := h.service.GetReservation(r.Context(), principal(r), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get reservation")
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateReservationRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	update := reservation.Update{
		Duration:        req.Duration,
		PartySize:       req.PartySize,
		SpecialRequests: req.SpecialRequests,
	}
	if req.Status != nil {
		status := reservation.Status(*req.Status)
		update.Status = &status
	}
	if req.Date != nil || req.Time != nil {
		// Rescheduling needs both halves of the start.
		if req.Date == nil || req.Time == nil {
			respondWithError(w, http.StatusBadRequest, "date and time must be changed together")
			return
		}
		startsAt, err := wallClock(*req.Date, *req.Time)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date or time")
			return
		}
		update.StartsAt = &startsAt
	}

	res, err := h.service.UpdateReservation(r.Context(), principal(r), id, update)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update reservation")
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *ReservationHandler) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteReservation(r.Context(), principal(r), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete reservation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/review"
)

type CreateReviewRequest struct {
	MenuItemID uuid.UUID `json:"menu_item" validate:"required"`
	OrderID    uuid.UUID `json:"order" validate:"required"`
	Rating     int       `json:"rating" validate:"required,gte=1,lte=5"`
	Comment    string    `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment"`
}

type ReviewHandler struct {
	service  review.Service
	validate *validator.Validate
}

func NewReviewHandler(service review.Service) *ReviewHandler {
	return &ReviewHandler{service: service, validate: newValidator()}
}

func (h *ReviewHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceReviews, auth.ActionRead)).Get("/reviews", h.handleList)
	router.With(authz.Authorize(auth.ResourceReviews, auth.ActionCreate)).Post("/reviews", h.handleCreate)
	router.With(authz.Authorize(auth.ResourceReviews, auth.ActionRead)).Get("/reviews/{id}", h.handleGet)
	router.With(authz.Authorize(auth.ResourceReviews, auth.ActionUpdate)).Patch("/reviews/{id}", h.handleUpdate)
	router.With(authz.Authorize(auth.ResourceReviews, auth.ActionDelete)).Delete("/reviews/{id}", h.handleDelete)
}

func (h *ReviewHandler) handleList(w http.ResponseWriter, r *http.Request) {
	menuItemID, ok := parseUUIDQuery(w, r, "menu_item")
	if !ok {
		return
	}
	filter := review.Filter{MenuItemID: menuItemID}
	if raw := r.URL.Query().Get("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid rating filter")
			return
		}
		filter.Rating = rating
	}

	reviews, err := h.service.ListReviews(r.Context(), principal(r), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list reviews")
		return
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	rv, err := h.service.CreateReview(r.Context(), principal(r), review.CreateInput{
		MenuItemID: req.MenuItemID,
		OrderID:    req.OrderID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create review")
		return
	}
	respondWithJSON(w, http.StatusCreated, rv)
}

func (h *ReviewHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	rv, err := h.service.GetReview(r.Context(), principal(r), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get review")
		return
	}
	respondWithJSON(w, http.StatusOK, rv)
}

func (h *ReviewHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateReviewRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	rv, err := h.service.UpdateReview(r.Context(), principal(r), id, review.Update{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update review")
		return
	}
	respondWithJSON(w, http.StatusOK, rv)
}

func (h *ReviewHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteReview(r.Context(), principal(r), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete review")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

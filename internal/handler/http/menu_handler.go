package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/menu"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Image       string `json:"image"`
	IsActive    *bool  `json:"is_active"`
}

type MenuItemRequest struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Description     string          `json:"description"`
	CategoryID      uuid.UUID       `json:"category" validate:"required"`
	Price           decimal.Decimal `json:"price"`
	Cost            decimal.Decimal `json:"cost"`
	Image           string          `json:"image"`
	Availability    string          `json:"availability" validate:"omitempty,oneof=available unavailable out_of_stock"`
	PreparationTime int             `json:"preparation_time" validate:"gte=0"`
	Calories        *int            `json:"calories" validate:"omitempty,gte=0"`
	Allergens       string          `json:"allergens"`
	IsFeatured      bool            `json:"is_featured"`
	IsActive        *bool           `json:"is_active"`
}

type MenuItemResponse struct {
	*menu.Item
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

func newMenuItemResponse(item *menu.Item) MenuItemResponse {
	return MenuItemResponse{Item: item, ProfitMargin: item.ProfitMargin()}
}

type MenuHandler struct {
	service  menu.Service
	validate *validator.Validate
}

func NewMenuHandler(service menu.Service) *MenuHandler {
	return &MenuHandler{service: service, validate: newValidator()}
}

func (h *MenuHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceCategories, auth.ActionRead)).Get("/categories", h.handleListCategories)
	router.With(authz.Authorize(auth.ResourceCategories, auth.ActionCreate)).Post("/categories", h.handleCreateCategory)
	router.With(authz.Authorize(auth.ResourceCategories, auth.ActionRead)).Get("/categories/{id}", h.handleGetCategory)
	router.With(authz.Authorize(auth.ResourceCategories, auth.ActionUpdate)).Put("/categories/{id}", h.handleUpdateCategory)
	router.With(authz.Authorize(auth.ResourceCategories, auth.ActionDelete)).Delete("/categories/{id}", h.handleDeleteCategory)

	router.With(authz.Authorize(auth.ResourceMenuItems, auth.ActionRead)).Get("/menu-items", h.handleListItems)
	router.With(authz.Authorize(auth.ResourceMenuItems, auth.ActionCreate)).Post("/menu-items", h.handleCreateItem)
	router.With(authz.Authorize(auth.ResourceMenuItems, auth.ActionRead)).Get("/menu-items/{id}", h.handleGetItem)
	router.With(authz.Authorize(auth.ResourceMenuItems, auth.ActionUpdate)).Put("/menu-items/{id}", h.handleUpdateItem)
	router.With(authz.Authorize(auth.ResourceMenuItems, auth.ActionDelete)).Delete("/menu-items/{id}", h.handleDeleteItem)
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (h *MenuHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context(), principal(r))
	if err != nil {
		respondWithServiceError(w, err, "Failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *MenuHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.service.CreateCategory(r.Context(), &menu.Category{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		IsActive:    boolOr(req.IsActive, true),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create category")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *MenuHandler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	c, err := h.service.GetCategory(r.Context(), principal(r), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get category")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *MenuHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	updated, err := h.service.UpdateCategory(r.Context(), &menu.Category{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		IsActive:    boolOr(req.IsActive, true),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update category")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *MenuHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MenuHandler) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID, ok := parseUUIDQuery(w, r, "category")
	if !ok {
		return
	}

	filter := menu.ItemFilter{
		CategoryID:   categoryID,
		Availability: menu.Availability(q.Get("availability")),
		Search:       q.Get("search"),
	}
	if raw := q.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid featured filter")
			return
		}
		filter.Featured = &featured
	}

	items, err := h.service.ListItems(r.Context(), principal(r), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list menu items")
		return
	}

	response := make([]MenuItemResponse, 0, len(items))
	for i := range items {
		response = append(response, newMenuItemResponse(&items[i]))
	}
	respondWithJSON(w, http.StatusOK, response)
}

func (req MenuItemRequest) toItem(id uuid.UUID) *menu.Item {
	return &menu.Item{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		Price:           req.Price,
		Cost:            req.Cost,
		Image:           req.Image,
		Availability:    menu.Availability(req.Availability),
		PreparationTime: req.PreparationTime,
		Calories:        req.Calories,
		Allergens:       req.Allergens,
		IsFeatured:      req.IsFeatured,
		IsActive:        boolOr(req.IsActive, true),
	}
}

func (h *MenuHandler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req MenuItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.service.CreateItem(r.Context(), req.toItem(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create menu item")
		return
	}
	respondWithJSON(w, http.StatusCreated, newMenuItemResponse(created))
}

func (h *MenuHandler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), principal(r), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get menu item")
		return
	}
	respondWithJSON(w, http.StatusOK, newMenuItemResponse(item))
}

func (h *MenuHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req MenuItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	updated, err := h.service.UpdateItem(r.Context(), req.toItem(id))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update menu item")
		return
	}
	respondWithJSON(w, http.StatusOK, newMenuItemResponse(updated))
}

func (h *MenuHandler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete menu item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

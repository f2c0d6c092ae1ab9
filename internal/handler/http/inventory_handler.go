package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/inventory"
)

type InventoryRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description"`
	CurrentStock int             `json:"current_stock" validate:"gte=0"`
	MinimumStock *int            `json:"minimum_stock" validate:"omitempty,gte=0"`
	Unit         string          `json:"unit" validate:"max=50"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	Supplier     string          `json:"supplier" validate:"max=200"`
	IsActive     *bool           `json:"is_active"`
}

type StockChangeRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

type InventoryResponse struct {
	*inventory.Item
	IsLowStock bool            `json:"is_low_stock"`
	StockValue decimal.Decimal `json:"stock_value"`
}

func newInventoryResponse(item *inventory.Item) InventoryResponse {
	return InventoryResponse{Item: item, IsLowStock: item.IsLowStock(), StockValue: item.StockValue()}
}

type InventoryHandler struct {
	service  inventory.Service
	validate *validator.Validate
}

func NewInventoryHandler(service inventory.Service) *InventoryHandler {
	return &InventoryHandler{service: service, validate: newValidator()}
}

func (h *InventoryHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceInventory, auth.ActionRead)).Get("/inventory", h.handleList)
	router.With(authz.Authorize(auth.ResourceInventory, auth.ActionCreate)).Post("/inventory", h.handleCreate)
	router.With(authz.Authorize(auth.ResourceInventory, auth.ActionRead)).Get("/inventory/{id}", h.handleGet)
	router.With(authz.Authorize(auth.ResourceInventory, auth.ActionUpdate)).Put("/inventory/{id}", h.handleUpdate)
	router.With(authz.Authorize(auth.ResourceInventory, auth.ActionDelete)).Delete("/inventory/{id}", h.handleDelete)
	router.With(authz.Authorize(auth.ResourceInventory, auth.ActionUpdate)).Post("/inventory/{id}/restock", h.handleRestock)
	router.With(authz.Authorize(auth.ResourceInventory, auth.ActionUpdate)).Post("/inventory/{id}/consume", h.handleConsume)
}

func (req InventoryRequest) toItem(id uuid.UUID) *inventory.Item {
	minimum := inventory.DefaultMinimumStock
	if req.MinimumStock != nil {
		minimum = *req.MinimumStock
	}
	return &inventory.Item{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		CurrentStock: req.CurrentStock,
		MinimumStock: minimum,
		Unit:         req.Unit,
		CostPerUnit:  req.CostPerUnit,
		Supplier:     req.Supplier,
		IsActive:     boolOr(req.IsActive, true),
	}
}

func (h *InventoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := inventory.Filter{Search: q.Get("search")}
	if raw := q.Get("low_stock"); raw != "" {
		low, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid low_stock filter")
			return
		}
		filter.LowStockOnly = low
	}

	items, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list inventory")
		return
	}
	response := make([]InventoryResponse, 0, len(items))
	for i := range items {
		response = append(response, newInventoryResponse(&items[i]))
	}
	respondWithJSON(w, http.StatusOK, response)
}

func (h *InventoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req InventoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	item, err := h.service.CreateItem(r.Context(), req.toItem(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create inventory item")
		return
	}
	respondWithJSON(w, http.StatusCreated, newInventoryResponse(item))
}

func (h *InventoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get inventory item")
		return
	}
	respondWithJSON(w, http.StatusOK, newInventoryResponse(item))
}

func (h *InventoryHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req InventoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	item, err := h.service.UpdateItem(r.Context(), req.toItem(id))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update inventory item")
		return
	}
	respondWithJSON(w, http.StatusOK, newInventoryResponse(item))
}

func (h *InventoryHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete inventory item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandler) handleRestock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req StockChangeRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	item, err := h.service.Restock(r.Context(), id, req.Quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to restock inventory item")
		return
	}
	respondWithJSON(w, http.StatusOK, newInventoryResponse(item))
}

func (h *InventoryHandler) handleConsume(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req StockChangeRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	item, err := h.service.Consume(r.Context(), principal(r), id, req.Quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to consume inventory item")
		return
	}
	respondWithJSON(w, http.StatusOK, newInventoryResponse(item))
}

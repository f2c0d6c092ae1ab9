package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
)

type OrderLineRequest struct {
	MenuItemID          uuid.UUID `json:"menu_item" validate:"required"`
	Quantity            int       `json:"quantity" validate:"required,gte=1"`
	SpecialInstructions string    `json:"special_instructions"`
}

type CreateOrderRequest struct {
	PaymentMethod string             `json:"payment_method" validate:"omitempty,oneof=cash card digital university_card"`
	Notes         string             `json:"notes"`
	Items         []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed preparing ready completed cancelled"`
}

type UpdateOrderPaymentRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=pending paid failed refunded"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cash card digital university_card"`
}

type UpdateOrderLineRequest struct {
	Quantity            int    `json:"quantity" validate:"required,gte=1"`
	SpecialInstructions string `json:"special_instructions"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{service: service, validate: newValidator()}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceOrders, auth.ActionCreate)).Post("/orders", h.handleCreateOrder)
	router.With(authz.Authorize(auth.ResourceOrders, auth.ActionRead)).Get("/orders", h.handleListOrders)
	router.With(authz.Authorize(auth.ResourceOrders, auth.ActionRead)).Get("/orders/{id}", h.handleGetOrder)
	router.With(authz.Authorize(auth.ResourceOrders, auth.ActionUpdate)).Patch("/orders/{id}/status", h.handleUpdateStatus)
	router.With(authz.Authorize(auth.ResourcePayments, auth.ActionUpdate)).Patch("/orders/{id}/payment", h.handleUpdatePayment)
	router.With(authz.Authorize(auth.ResourceOrders, auth.ActionDelete)).Delete("/orders/{id}", h.handleDeleteOrder)

	router.With(authz.Authorize(auth.ResourceOrderItems, auth.ActionCreate)).Post("/orders/{id}/items", h.handleAddLine)
	router.With(authz.Authorize(auth.ResourceOrderItems, auth.ActionUpdate)).Put("/orders/{id}/items/{itemID}", h.handleUpdateLine)
	router.With(authz.Authorize(auth.ResourceOrderItems, auth.ActionDelete)).Delete("/orders/{id}/items/{itemID}", h.handleRemoveLine)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	input := order.CreateInput{
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
		Items:         make([]order.LineInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, order.LineInput{
			MenuItemID:          item.MenuItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	created, err := h.service.CreateOrder(r.Context(), principal(r), input)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseUUIDQuery(w, r, "customer")
	if !ok {
		return
	}
	filter := order.Filter{
		CustomerID: customerID,
		Status:     order.Status(r.URL.Query().Get("status")),
	}

	orders, err := h.service.ListOrders(r.Context(), principal(r), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	o, err := h.service.GetOrder(r.Context(), principal(r), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.UpdateStatus(r.Context(), principal(r), id, order.Status(req.Status))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req UpdateOrderPaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.UpdatePayment(r.Context(), id, order.PaymentStatus(req.PaymentStatus), order.PaymentMethod(req.PaymentMethod))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order payment")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req OrderLineRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.AddLine(r.Context(), id, order.LineInput{
		MenuItemID:          req.MenuItemID,
		Quantity:            req.Quantity,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to add order item")
		return
	}
	respondWithJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(w, r, "itemID")
	if !ok {
		return
	}
	var req UpdateOrderLineRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.UpdateLine(r.Context(), id, lineID, order.LineUpdate{
		Quantity:            req.Quantity,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order item")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(w, r, "itemID")
	if !ok {
		return
	}

	o, err := h.service.RemoveLine(r.Context(), id, lineID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to remove order item")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
	"github.com/vasiliy-maslov/campus-cafe/internal/payment"
)

type CreatePaymentRequest struct {
	OrderID       uuid.UUID `json:"order" validate:"required"`
	PaymentMethod string    `json:"payment_method" validate:"omitempty,oneof=cash card digital university_card"`
}

type CompletePaymentRequest struct {
	TransactionID   string          `json:"transaction_id" validate:"max=100"`
	GatewayResponse json.RawMessage `json:"gateway_response"`
}

type FailPaymentRequest struct {
	GatewayResponse json.RawMessage `json:"gateway_response"`
}

type PaymentHandler struct {
	service  payment.Service
	validate *validator.Validate
}

func NewPaymentHandler(service payment.Service) *PaymentHandler {
	return &PaymentHandler{service: service, validate: newValidator()}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourcePayments, auth.ActionCreate)).Post("/payments", h.handleCreatePayment)
	router.With(authz.Authorize(auth.ResourcePayments, auth.ActionRead)).Get("/payments", h.handleListPayments)
	router.With(authz.Authorize(auth.ResourcePayments, auth.ActionRead)).Get("/payments/{id}", h.handleGetPayment)
	router.With(authz.Authorize(auth.ResourcePayments, auth.ActionUpdate)).Post("/payments/{id}/complete", h.handleComplete)
	router.With(authz.Authorize(auth.ResourcePayments, auth.ActionUpdate)).Post("/payments/{id}/fail", h.handleFail)
	router.With(authz.Authorize(auth.ResourcePayments, auth.ActionUpdate)).Post("/payments/{id}/refund", h.handleRefund)
}

func (h *PaymentHandler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.service.CreatePayment(r.Context(), principal(r), req.OrderID, order.PaymentMethod(req.PaymentMethod))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create payment")
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *PaymentHandler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(), principal(r), payment.Filter{
		Status: payment.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to list payments")
		return
	}
	respondWithJSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.GetPayment(r.Context(), principal(r), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get payment")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req CompletePaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.service.Complete(r.Context(), id, req.TransactionID, req.GatewayResponse)
	if err != nil {
		respondWithServiceError(w, err, "Failed to complete payment")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) handleFail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req FailPaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p, err := h.service.Fail(r.Context(), id, req.GatewayResponse)
	if err != nil {
		respondWithServiceError(w, err, "Failed to mark payment failed")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) handleRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.Refund(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to refund payment")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

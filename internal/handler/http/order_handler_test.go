package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cafeHttp "github.com/vasiliy-maslov/campus-cafe/internal/handler/http"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
)

func TestOrderHandler_CreateOrder_Success(t *testing.T) {
	itemID := uuid.Must(uuid.NewV4())
	mockService := new(MockOrderService)

	created := &order.Order{
		ID:            uuid.Must(uuid.NewV4()),
		CustomerID:    customerUser.UserID,
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentPending,
		PaymentMethod: order.MethodCard,
		Subtotal:      decimal.RequireFromString("9.00"),
		TaxAmount:     decimal.RequireFromString("0.72"),
		TotalAmount:   decimal.RequireFromString("9.72"),
		Lines: []order.Line{{
			ID:         uuid.Must(uuid.NewV4()),
			MenuItemID: itemID,
			Quantity:   2,
			UnitPrice:  decimal.RequireFromString("4.50"),
		}},
	}

	mockService.On("CreateOrder", mock.Anything, customerUser, order.CreateInput{
		PaymentMethod: order.MethodCard,
		Items:         []order.LineInput{{MenuItemID: itemID, Quantity: 2}},
	}).Return(created, nil).Once()

	router := newTestRouter(customerUser, cafeHttp.NewOrderHandler(mockService))
	rr := doRequest(t, router, http.MethodPost, "/orders", cafeHttp.CreateOrderRequest{
		PaymentMethod: "card",
		Items:         []cafeHttp.OrderLineRequest{{MenuItemID: itemID, Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var got order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, decimal.RequireFromString("9.72").Equal(got.TotalAmount))
	assert.True(t, decimal.RequireFromString("0.72").Equal(got.TaxAmount))
	require.Len(t, got.Lines, 1)
	assert.Equal(t, itemID, got.Lines[0].MenuItemID)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_CreateOrder_Validation(t *testing.T) {
	testCases := []struct {
		name      string
		body      any
		wantField string
	}{
		{
			name:      "no items",
			body:      cafeHttp.CreateOrderRequest{PaymentMethod: "cash"},
			wantField: "items",
		},
		{
			name: "unknown payment method",
			body: cafeHttp.CreateOrderRequest{
				PaymentMethod: "barter",
				Items:         []cafeHttp.OrderLineRequest{{MenuItemID: uuid.Must(uuid.NewV4()), Quantity: 1}},
			},
			wantField: "payment_method",
		},
		{
			name: "zero quantity",
			body: cafeHttp.CreateOrderRequest{
				Items: []cafeHttp.OrderLineRequest{{MenuItemID: uuid.Must(uuid.NewV4())}},
			},
			wantField: "quantity",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			router := newTestRouter(customerUser, cafeHttp.NewOrderHandler(mockService))

			rr := doRequest(t, router, http.MethodPost, "/orders", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)

			resp := decodeError(t, rr)
			assert.Equal(t, "Validation failed", resp.Error)
			assert.Contains(t, resp.Details, tc.wantField)
			mockService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderHandler_CreateOrder_UnknownField(t *testing.T) {
	mockService := new(MockOrderService)
	router := newTestRouter(customerUser, cafeHttp.NewOrderHandler(mockService))

	rr := doRequest(t, router, http.MethodPost, "/orders", `{"items":[],"total_amount":"0.01"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Error, "Invalid request payload")
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	testCases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "bad transition", serviceErr: order.ErrInvalidStatusTransition, wantStatus: http.StatusBadRequest},
		{name: "not owner", serviceErr: order.ErrOrderNotFound, wantStatus: http.StatusNotFound},
		{name: "forbidden", serviceErr: order.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "unexpected", serviceErr: errors.New("connection reset"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			call := mockService.On("UpdateStatus", mock.Anything, staffUser, id, order.StatusConfirmed)
			if tc.serviceErr != nil {
				call.Return(nil, tc.serviceErr).Once()
			} else {
				call.Return(&order.Order{ID: id, Status: order.StatusConfirmed}, nil).Once()
			}

			router := newTestRouter(staffUser, cafeHttp.NewOrderHandler(mockService))
			rr := doRequest(t, router, http.MethodPatch, "/orders/"+id.String()+"/status",
				cafeHttp.UpdateOrderStatusRequest{Status: "confirmed"})

			require.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "Failed to update order status", decodeError(t, rr).Error)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_OrderLinesRequireStaff(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	mockService := new(MockOrderService)
	router := newTestRouter(customerUser, cafeHttp.NewOrderHandler(mockService))

	rr := doRequest(t, router, http.MethodPost, "/orders/"+id.String()+"/items",
		cafeHttp.OrderLineRequest{MenuItemID: uuid.Must(uuid.NewV4()), Quantity: 1})

	require.Equal(t, http.StatusForbidden, rr.Code)
	mockService.AssertNotCalled(t, "AddLine", mock.Anything, mock.Anything, mock.Anything)
}

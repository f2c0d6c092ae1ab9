package payment_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
	"github.com/vasiliy-maslov/campus-cafe/internal/payment"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, filter payment.Filter) ([]payment.Payment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, p *payment.Payment) error {
	return m.Called(ctx, p).Error(0)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) GetOrder(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) UpdatePayment(ctx context.Context, id uuid.UUID, status order.PaymentStatus, method order.PaymentMethod) (*order.Order, error) {
	args := m.Called(ctx, id, status, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

var staff = &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Role: auth.RoleStaff}

func TestPaymentService_CreatePayment(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	o := &order.Order{
		ID:            orderID,
		CustomerID:    uuid.Must(uuid.NewV4()),
		Status:        order.StatusConfirmed,
		PaymentMethod: order.MethodCard,
		TotalAmount:   decimal.RequireFromString("13.23"),
	}

	mockRepo, mockOrders := new(MockPaymentRepository), new(MockOrders)
	svc := payment.NewService(mockRepo, mockOrders)

	mockOrders.On("GetOrder", mock.Anything, staff, orderID).Return(o, nil).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *payment.Payment) bool {
		return p.OrderID == orderID && p.Amount.Equal(o.TotalAmount) && p.PaymentMethod == order.MethodCard && p.Status == payment.StatusPending
	})).Return(nil).Once()

	p, err := svc.CreatePayment(context.Background(), staff, orderID, "")
	require.NoError(t, err)
	assert.Equal(t, o.CustomerID, p.CustomerID)
	mockRepo.AssertExpectations(t)
	mockOrders.AssertExpectations(t)
}

func TestPaymentService_CreatePayment_Errors(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("cancelled order", func(t *testing.T) {
		mockRepo, mockOrders := new(MockPaymentRepository), new(MockOrders)
		svc := payment.NewService(mockRepo, mockOrders)
		mockOrders.On("GetOrder", mock.Anything, staff, orderID).Return(&order.Order{ID: orderID, Status: order.StatusCancelled}, nil).Once()

		_, err := svc.CreatePayment(context.Background(), staff, orderID, order.MethodCash)
		assert.ErrorIs(t, err, payment.ErrOrderCancelled)
	})

	t.Run("second payment", func(t *testing.T) {
		mockRepo, mockOrders := new(MockPaymentRepository), new(MockOrders)
		svc := payment.NewService(mockRepo, mockOrders)
		mockOrders.On("GetOrder", mock.Anything, staff, orderID).Return(&order.Order{ID: orderID, Status: order.StatusPending}, nil).Once()
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(payment.ErrPaymentExists).Once()

		_, err := svc.CreatePayment(context.Background(), staff, orderID, order.MethodCash)
		assert.ErrorIs(t, err, payment.ErrPaymentExists)
	})

	t.Run("missing order", func(t *testing.T) {
		mockRepo, mockOrders := new(MockPaymentRepository), new(MockOrders)
		svc := payment.NewService(mockRepo, mockOrders)
		mockOrders.On("GetOrder", mock.Anything, staff, orderID).Return(nil, order.ErrOrderNotFound).Once()

		_, err := svc.CreatePayment(context.Background(), staff, orderID, order.MethodCash)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestPaymentService_Transitions(t *testing.T) {
	gateway := json.RawMessage(`{"auth_code":"A1"}`)

	testCases := []struct {
		name        string
		from        payment.Status
		act         func(svc payment.Service, id uuid.UUID) (*payment.Payment, error)
		wantStatus  payment.Status
		orderStatus order.PaymentStatus
		wantErrIs   error
	}{
		{
			name: "complete",
			from: payment.StatusPending,
			act: func(svc payment.Service, id uuid.UUID) (*payment.Payment, error) {
				return svc.Complete(context.Background(), id, "tx-42", gateway)
			},
			wantStatus:  payment.StatusCompleted,
			orderStatus: order.PaymentPaid,
		},
		{
			name: "fail",
			from: payment.StatusPending,
			act: func(svc payment.Service, id uuid.UUID) (*payment.Payment, error) {
				return svc.Fail(context.Background(), id, nil)
			},
			wantStatus:  payment.StatusFailed,
			orderStatus: order.PaymentFailed,
		},
		{
			name: "refund",
			from: payment.StatusCompleted,
			act: func(svc payment.Service, id uuid.UUID) (*payment.Payment, error) {
				return svc.Refund(context.Background(), id)
			},
			wantStatus:  payment.StatusRefunded,
			orderStatus: order.PaymentRefunded,
		},
		{
			name: "refund pending",
			from: payment.StatusPending,
			act: func(svc payment.Service, id uuid.UUID) (*payment.Payment, error) {
				return svc.Refund(context.Background(), id)
			},
			wantErrIs: payment.ErrInvalidTransition,
		},
		{
			name: "complete twice",
			from: payment.StatusCompleted,
			act: func(svc payment.Service, id uuid.UUID) (*payment.Payment, error) {
				return svc.Complete(context.Background(), id, "tx-43", nil)
			},
			wantErrIs: payment.ErrInvalidTransition,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo, mockOrders := new(MockPaymentRepository), new(MockOrders)
			svc := payment.NewService(mockRepo, mockOrders)

			id, orderID := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
			stored := &payment.Payment{ID: id, OrderID: orderID, Status: tc.from, PaymentMethod: order.MethodCard}
			mockRepo.On("GetByID", mock.Anything, id).Return(stored, nil).Once()

			if tc.wantErrIs == nil {
				mockRepo.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*payment.Payment")).Return(nil).Once()
				mockOrders.On("UpdatePayment", mock.Anything, orderID, tc.orderStatus, order.MethodCard).Return(&order.Order{ID: orderID}, nil).Once()
			}

			p, err := tc.act(svc, id)
			if tc.wantErrIs != nil {
				assert.ErrorIs(t, err, tc.wantErrIs)
				mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, p.Status)
			if tc.wantStatus == payment.StatusCompleted {
				require.NotNil(t, p.CompletedAt)
				assert.Equal(t, "tx-42", p.TransactionID)
				assert.JSONEq(t, string(gateway), string(p.GatewayResponse))
			}
			mockRepo.AssertExpectations(t)
			mockOrders.AssertExpectations(t)
		})
	}
}

func TestPaymentService_GetPayment_ScopesCustomers(t *testing.T) {
	owner := &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Role: auth.RoleCustomer}
	other := &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Role: auth.RoleCustomer}
	id := uuid.Must(uuid.NewV4())

	mockRepo := new(MockPaymentRepository)
	svc := payment.NewService(mockRepo, new(MockOrders))
	mockRepo.On("GetByID", mock.Anything, id).Return(&payment.Payment{ID: id, CustomerID: owner.UserID}, nil)

	_, err := svc.GetPayment(context.Background(), owner, id)
	require.NoError(t, err)

	_, err = svc.GetPayment(context.Background(), other, id)
	assert.ErrorIs(t, err, payment.ErrNotFound)
}

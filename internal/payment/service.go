package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
)

var (
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrOrderCancelled    = errors.New("cannot pay for a cancelled order")
)

// Orders is the slice of order.Service payments depend on.
type Orders interface {
	GetOrder(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*order.Order, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, status order.PaymentStatus, method order.PaymentMethod) (*order.Order, error)
}

type Service interface {
	CreatePayment(ctx context.Context, caller *auth.Principal, orderID uuid.UUID, method order.PaymentMethod) (*Payment, error)
	GetPayment(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Payment, error)
	ListPayments(ctx context.Context, caller *auth.Principal, filter Filter) ([]Payment, error)
	Complete(ctx context.Context, id uuid.UUID, transactionID string, gatewayResponse json.RawMessage) (*Payment, error)
	Fail(ctx context.Context, id uuid.UUID, gatewayResponse json.RawMessage) (*Payment, error)
	Refund(ctx context.Context, id uuid.UUID) (*Payment, error)
}

type service struct {
	repo   Repository
	orders Orders
	now    func() time.Time
}

func NewService(repo Repository, orders Orders) Service {
	return &service{repo: repo, orders: orders, now: time.Now}
}

// CreatePayment opens a pending payment for the order's current total.
func (s *service) CreatePayment(ctx context.Context, caller *auth.Principal, orderID uuid.UUID, method order.PaymentMethod) (*Payment, error) {
	o, err := s.orders.GetOrder(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == order.StatusCancelled {
		return nil, ErrOrderCancelled
	}
	if method == "" {
		method = o.PaymentMethod
	}
	if !method.Valid() {
		return nil, order.ErrInvalidPaymentMethod
	}

	p := &Payment{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		Amount:        o.TotalAmount,
		PaymentMethod: method,
		Status:        StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrPaymentExists) {
			return nil, ErrPaymentExists
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to create payment")
		return nil, fmt.Errorf("service: failed to create payment: %w", err)
	}

	log.Info().Stringer("payment_id", p.ID).Stringer("order_id", o.ID).Str("amount", p.Amount.StringFixed(2)).Msg("service: payment created")
	return p, nil
}

func (s *service) GetPayment(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get payment: %w", err)
	}
	if !caller.IsStaffMember() && p.CustomerID != caller.UserID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *service) ListPayments(ctx context.Context, caller *auth.Principal, filter Filter) ([]Payment, error) {
	if !caller.IsStaffMember() {
		filter.CustomerID = &caller.UserID
	}
	payments, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list payments")
		return nil, fmt.Errorf("service: failed to list payments: %w", err)
	}
	return payments, nil
}

// transition moves a payment from one status to another and mirrors the
// outcome onto the order's payment_status.
func (s *service) transition(ctx context.Context, id uuid.UUID, from, to Status, orderStatus order.PaymentStatus, mutate func(*Payment)) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get payment: %w", err)
	}
	if p.Status != from {
		log.Warn().Stringer("payment_id", id).Stringer("current_status", p.Status).Stringer("new_status", to).Msg("service: invalid payment transition attempt")
		return nil, fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, p.Status, to)
	}

	p.Status = to
	if mutate != nil {
		mutate(p)
	}
	if err := s.repo.UpdateStatus(ctx, p); err != nil {
		log.Error().Err(err).Stringer("payment_id", id).Msg("service: failed to update payment status")
		return nil, fmt.Errorf("service: failed to update payment: %w", err)
	}

	if _, err := s.orders.UpdatePayment(ctx, p.OrderID, orderStatus, p.PaymentMethod); err != nil {
		log.Error().Err(err).Stringer("order_id", p.OrderID).Msg("service: failed to mirror payment onto order")
		return nil, fmt.Errorf("service: failed to update order payment status: %w", err)
	}

	log.Info().Stringer("payment_id", id).Stringer("status", to).Msg("service: payment status updated")
	return p, nil
}

func (s *service) Complete(ctx context.Context, id uuid.UUID, transactionID string, gatewayResponse json.RawMessage) (*Payment, error) {
	return s.transition(ctx, id, StatusPending, StatusCompleted, order.PaymentPaid, func(p *Payment) {
		completed := s.now().UTC()
		p.CompletedAt = &completed
		p.TransactionID = transactionID
		if len(gatewayResponse) > 0 {
			p.GatewayResponse = gatewayResponse
		}
	})
}

func (s *service) Fail(ctx context.Context, id uuid.UUID, gatewayResponse json.RawMessage) (*Payment, error) {
	return s.transition(ctx, id, StatusPending, StatusFailed, order.PaymentFailed, func(p *Payment) {
		if len(gatewayResponse) > 0 {
			p.GatewayResponse = gatewayResponse
		}
	})
}

func (s *service) Refund(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.transition(ctx, id, StatusCompleted, StatusRefunded, order.PaymentRefunded, nil)
}

package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/menu"
	"github.com/vasiliy-maslov/campus-cafe/internal/notification"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusPreparing: true,
		StatusCancelled: true,
	},
	StatusPreparing: {
		StatusReady:     true,
		StatusCancelled: true,
	},
	StatusReady: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

var (
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrItemUnavailable         = errors.New("menu item is not available")
	ErrNotEditable             = errors.New("order items can only change while pending or confirmed")
	ErrLineNotFound            = errors.New("order item not found")
	ErrForbidden               = errors.New("not allowed to modify this order")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidPaymentStatus    = errors.New("invalid payment status")
)

// MenuLookup resolves menu items for price capture. menu.Repository
// satisfies it.
type MenuLookup interface {
	GetItem(ctx context.Context, id uuid.UUID) (*menu.Item, error)
}

type Service interface {
	CreateOrder(ctx context.Context, caller *auth.Principal, input CreateInput) (*Order, error)
	GetOrder(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, caller *auth.Principal, filter Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, caller *auth.Principal, id uuid.UUID, newStatus Status) (*Order, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, status PaymentStatus, method PaymentMethod) (*Order, error)
	AddLine(ctx context.Context, id uuid.UUID, input LineInput) (*Order, error)
	UpdateLine(ctx context.Context, id, lineID uuid.UUID, update LineUpdate) (*Order, error)
	RemoveLine(ctx context.Context, id, lineID uuid.UUID) (*Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type service struct {
	orderRepo Repository
	menu      MenuLookup
	notifier  notification.Publisher
	now       func() time.Time
}

func NewService(orderRepo Repository, menu MenuLookup, notifier notification.Publisher) Service {
	return &service{
		orderRepo: orderRepo,
		menu:      menu,
		notifier:  notifier,
		now:       time.Now,
	}
}

// priceLine captures the current menu price for a new line.
func (s *service) priceLine(ctx context.Context, input LineInput) (Line, error) {
	if input.Quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}

	item, err := s.menu.GetItem(ctx, input.MenuItemID)
	if err != nil {
		if errors.Is(err, menu.ErrItemNotFound) {
			return Line{}, fmt.Errorf("%w: %s", ErrItemUnavailable, input.MenuItemID)
		}
		return Line{}, fmt.Errorf("service: failed to load menu item %s: %w", input.MenuItemID, err)
	}
	if !item.Orderable() {
		return Line{}, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}

	return Line{
		MenuItemID:          item.ID,
		MenuItemName:        item.Name,
		Quantity:            input.Quantity,
		UnitPrice:           item.Price,
		SpecialInstructions: input.SpecialInstructions,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, caller *auth.Principal, input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		log.Warn().Msg("service: attempt to create order with no items")
		return nil, ErrEmptyOrder
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = MethodCash
	}
	if !input.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	o := &Order{
		CustomerID:    caller.UserID,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
		Lines:         make([]Line, 0, len(input.Items)),
	}

	for _, in := range input.Items {
		if o.hasMenuItem(in.MenuItemID) {
			return nil, ErrDuplicateLine
		}
		line, err := s.priceLine(ctx, in)
		if err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, line)
	}

	o.Recalculate()

	if err := s.orderRepo.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateLine) {
			return nil, ErrDuplicateLine
		}
		log.Error().Err(err).Stringer("customer_id", caller.UserID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("customer_id", o.CustomerID).
		Str("total", o.TotalAmount.StringFixed(2)).
		Msg("service: order created")

	s.notify(ctx, notification.Event{
		UserID:  o.CustomerID,
		Type:    notification.TypeOrder,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order %s totalling %s has been received.", shortID(o.ID), o.TotalAmount.StringFixed(2)),
	})

	return o, nil
}

func (s *service) GetOrder(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	// Customers cannot tell someone else's order from a missing one.
	if !caller.IsStaffMember() && o.CustomerID != caller.UserID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, caller *auth.Principal, filter Filter) ([]Order, error) {
	if !caller.IsStaffMember() {
		filter.CustomerID = &caller.UserID
	}

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", caller.UserID).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order along the state machine. Customers may only
// cancel their own pending orders.
func (s *service) UpdateStatus(ctx context.Context, caller *auth.Principal, id uuid.UUID, newStatus Status) (*Order, error) {
	var oldStatus Status

	o, err := s.orderRepo.Modify(ctx, id, func(o *Order) error {
		if !caller.IsStaffMember() {
			if o.CustomerID != caller.UserID {
				return ErrOrderNotFound
			}
			if newStatus != StatusCancelled || o.Status != StatusPending {
				return ErrForbidden
			}
		}

		oldStatus = o.Status
		if o.Status == newStatus {
			return nil
		}

		transitions, ok := allowedTransitions[o.Status]
		if !ok || !transitions[newStatus] {
			log.Warn().
				Stringer("order_id", o.ID).
				Stringer("current_status", o.Status).
				Stringer("new_status", newStatus).
				Msg("service: invalid status transition attempt")
			return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, o.Status, newStatus)
		}

		o.Status = newStatus
		if newStatus == StatusCompleted {
			completed := s.now().UTC()
			o.CompletedAt = &completed
		}
		o.Recalculate()
		return nil
	})
	if err != nil {
		return nil, s.wrapModifyErr(err, id, "update order status")
	}

	if oldStatus != newStatus {
		log.Info().Stringer("order_id", id).Stringer("old_status", oldStatus).Stringer("new_status", newStatus).Msg("service: order status updated")
		s.notify(ctx, notification.Event{
			UserID:  o.CustomerID,
			Type:    notification.TypeOrder,
			Title:   "Order " + string(newStatus),
			Message: fmt.Sprintf("Your order %s is now %s.", shortID(o.ID), newStatus),
		})
	}
	return o, nil
}

func (s *service) UpdatePayment(ctx context.Context, id uuid.UUID, status PaymentStatus, method PaymentMethod) (*Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidPaymentStatus
	}
	if method != "" && !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	var changed bool
	o, err := s.orderRepo.Modify(ctx, id, func(o *Order) error {
		if status != "" && o.PaymentStatus != status {
			o.PaymentStatus = status
			changed = true
		}
		if method != "" {
			o.PaymentMethod = method
		}
		o.Recalculate()
		return nil
	})
	if err != nil {
		return nil, s.wrapModifyErr(err, id, "update payment")
	}

	if changed {
		s.notify(ctx, notification.Event{
			UserID:  o.CustomerID,
			Type:    notification.TypePayment,
			Title:   "Payment " + string(o.PaymentStatus),
			Message: fmt.Sprintf("Payment for order %s is %s.", shortID(o.ID), o.PaymentStatus),
		})
	}
	return o, nil
}

func (s *service) AddLine(ctx context.Context, id uuid.UUID, input LineInput) (*Order, error) {
	line, err := s.priceLine(ctx, input)
	if err != nil {
		return nil, err
	}

	o, err := s.orderRepo.Modify(ctx, id, func(o *Order) error {
		if !o.Editable() {
			return ErrNotEditable
		}
		if o.hasMenuItem(line.MenuItemID) {
			return ErrDuplicateLine
		}
		o.Lines = append(o.Lines, line)
		o.Recalculate()
		return nil
	})
	if err != nil {
		return nil, s.wrapModifyErr(err, id, "add order item")
	}
	return o, nil
}

func (s *service) UpdateLine(ctx context.Context, id, lineID uuid.UUID, update LineUpdate) (*Order, error) {
	if update.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	o, err := s.orderRepo.Modify(ctx, id, func(o *Order) error {
		if !o.Editable() {
			return ErrNotEditable
		}
		i := o.lineIndex(lineID)
		if i < 0 {
			return ErrLineNotFound
		}
		o.Lines[i].Quantity = update.Quantity
		o.Lines[i].SpecialInstructions = update.SpecialInstructions
		o.Recalculate()
		return nil
	})
	if err != nil {
		return nil, s.wrapModifyErr(err, id, "update order item")
	}
	return o, nil
}

func (s *service) RemoveLine(ctx context.Context, id, lineID uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.Modify(ctx, id, func(o *Order) error {
		if !o.Editable() {
			return ErrNotEditable
		}
		i := o.lineIndex(lineID)
		if i < 0 {
			return ErrLineNotFound
		}
		o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
		o.Recalculate()
		return nil
	})
	if err != nil {
		return nil, s.wrapModifyErr(err, id, "remove order item")
	}
	return o, nil
}

func (s *service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to delete order")
		return fmt.Errorf("service: failed to delete order: %w", err)
	}
	return nil
}

var domainErrors = []error{
	ErrOrderNotFound,
	ErrInvalidStatusTransition,
	ErrNotEditable,
	ErrLineNotFound,
	ErrDuplicateLine,
	ErrForbidden,
}

func (s *service) wrapModifyErr(err error, id uuid.UUID, op string) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	log.Error().Err(err).Stringer("order_id", id).Msgf("service: failed to %s", op)
	return fmt.Errorf("service: failed to %s: %w", op, err)
}

// notify logs publish failures and returns; the order write has already
// committed.
func (s *service) notify(ctx context.Context, event notification.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		log.Error().Err(err).Stringer("user_id", event.UserID).Str("title", event.Title).Msg("service: failed to publish notification")
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

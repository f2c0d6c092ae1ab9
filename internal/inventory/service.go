package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/notification"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidStock    = errors.New("stock levels cannot be negative")
	ErrInvalidCost     = errors.New("cost per unit cannot be negative")
)

type Service interface {
	CreateItem(ctx context.Context, item *Item) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, filter Filter) ([]Item, error)
	UpdateItem(ctx context.Context, item *Item) (*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	Restock(ctx context.Context, id uuid.UUID, quantity int) (*Item, error)
	Consume(ctx context.Context, caller *auth.Principal, id uuid.UUID, quantity int) (*Item, error)
}

type service struct {
	repo     Repository
	notifier notification.Publisher
}

func NewService(repo Repository, notifier notification.Publisher) Service {
	return &service{repo: repo, notifier: notifier}
}

func normalize(item *Item) error {
	if item.CurrentStock < 0 || item.MinimumStock < 0 {
		return ErrInvalidStock
	}
	if item.CostPerUnit.IsNegative() {
		return ErrInvalidCost
	}
	if item.Unit == "" {
		item.Unit = DefaultUnit
	}
	item.CostPerUnit = item.CostPerUnit.Round(2)
	return nil
}

func (s *service) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	if err := normalize(item); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		log.Error().Err(err).Str("name", item.Name).Msg("service: failed to create inventory item")
		return nil, fmt.Errorf("service: failed to create inventory item: %w", err)
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get inventory item: %w", err)
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, filter Filter) ([]Item, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list inventory: %w", err)
	}
	return items, nil
}

func (s *service) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	if err := normalize(item); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to update inventory item: %w", err)
	}
	return item, nil
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to delete inventory item: %w", err)
	}
	return nil
}

func (s *service) Restock(ctx context.Context, id uuid.UUID, quantity int) (*Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	item, err := s.repo.AdjustStock(ctx, id, quantity, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to restock inventory item: %w", err)
	}
	log.Info().Stringer("inventory_id", id).Int("quantity", quantity).Int("stock", item.CurrentStock).Msg("service: inventory restocked")
	return item, nil
}

// Consume draws stock down. Crossing the minimum notifies the caller.
func (s *service) Consume(ctx context.Context, caller *auth.Principal, id uuid.UUID, quantity int) (*Item, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	item, err := s.repo.AdjustStock(ctx, id, -quantity, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficientStock) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to consume inventory item: %w", err)
	}

	wasLow := item.CurrentStock+quantity <= item.MinimumStock
	if item.IsLowStock() && !wasLow && caller != nil {
		ev := notification.Event{
			UserID:  caller.UserID,
			Type:    notification.TypeInventory,
			Title:   "Low stock: " + item.Name,
			Message: fmt.Sprintf("%s is down to %d %s (minimum %d).", item.Name, item.CurrentStock, item.Unit, item.MinimumStock),
		}
		if err := s.notifier.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Stringer("inventory_id", id).Msg("service: failed to publish low stock notification")
		}
	}
	return item, nil
}

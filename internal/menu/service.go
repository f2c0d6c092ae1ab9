package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
)

var (
	ErrInvalidPrice        = errors.New("price must be at least 0.01")
	ErrInvalidCost         = errors.New("cost cannot be negative")
	ErrInvalidAvailability = errors.New("invalid availability")
)

var minPrice = decimal.RequireFromString("0.01")

type Service interface {
	CreateCategory(ctx context.Context, c *Category) (*Category, error)
	GetCategory(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, caller *auth.Principal) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateItem(ctx context.Context, item *Item) (*Item, error)
	GetItem(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, caller *auth.Principal, filter ItemFilter) ([]Item, error)
	UpdateItem(ctx context.Context, item *Item) (*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateCategory(ctx context.Context, c *Category) (*Category, error) {
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return nil, ErrCategoryExists
		}
		log.Error().Err(err).Str("name", c.Name).Msg("service: failed to create category")
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}
	return c, nil
}

// GetCategory hides inactive categories from customers.
func (s *service) GetCategory(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("service: failed to get category: %w", err)
	}
	if !c.IsActive && !caller.IsStaffMember() {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

func (s *service) ListCategories(ctx context.Context, caller *auth.Principal) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx, !caller.IsStaffMember())
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) UpdateCategory(ctx context.Context, c *Category) (*Category, error) {
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryExists) {
			return nil, err
		}
		log.Error().Err(err).Stringer("category_id", c.ID).Msg("service: failed to update category")
		return nil, fmt.Errorf("service: failed to update category: %w", err)
	}
	return c, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("service: failed to delete category: %w", err)
	}
	return nil
}

func validateItem(item *Item) error {
	if item.Price.LessThan(minPrice) {
		return ErrInvalidPrice
	}
	if item.Cost.IsNegative() {
		return ErrInvalidCost
	}
	if item.Availability == "" {
		item.Availability = Available
	}
	if !item.Availability.Valid() {
		return ErrInvalidAvailability
	}
	item.Price = item.Price.Round(2)
	item.Cost = item.Cost.Round(2)
	return nil
}

func (s *service) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if item.PreparationTime == 0 {
		item.PreparationTime = 5
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Str("name", item.Name).Msg("service: failed to create menu item")
		return nil, fmt.Errorf("service: failed to create menu item: %w", err)
	}

	log.Info().Stringer("menu_item_id", item.ID).Str("name", item.Name).Msg("service: menu item created")
	return item, nil
}

// GetItem hides items customers cannot order.
func (s *service) GetItem(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("service: failed to get menu item: %w", err)
	}
	if !caller.IsStaffMember() && !item.Orderable() {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, caller *auth.Principal, filter ItemFilter) ([]Item, error) {
	if !caller.IsStaffMember() {
		filter.OrderableOnly = true
	}
	if filter.Availability != "" && !filter.Availability.Valid() {
		return nil, ErrInvalidAvailability
	}

	items, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list menu items")
		return nil, fmt.Errorf("service: failed to list menu items: %w", err)
	}
	return items, nil
}

func (s *service) UpdateItem(ctx context.Context, item *Item) (*Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		if errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrCategoryNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("menu_item_id", item.ID).Msg("service: failed to update menu item")
		return nil, fmt.Errorf("service: failed to update menu item: %w", err)
	}
	return item, nil
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("service: failed to delete menu item: %w", err)
	}
	return nil
}

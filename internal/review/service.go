package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrNotOrderOwner = errors.New("you can only review your own orders")
	ErrForbidden     = errors.New("only the author can modify this review")
)

// Orders is satisfied by order.Repository.
type Orders interface {
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type Service interface {
	CreateReview(ctx context.Context, caller *auth.Principal, input CreateInput) (*Review, error)
	GetReview(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Review, error)
	ListReviews(ctx context.Context, caller *auth.Principal, filter Filter) ([]Review, error)
	UpdateReview(ctx context.Context, caller *auth.Principal, id uuid.UUID, update Update) (*Review, error)
	DeleteReview(ctx context.Context, caller *auth.Principal, id uuid.UUID) error
}

type service struct {
	repo   Repository
	orders Orders
}

func NewService(repo Repository, orders Orders) Service {
	return &service{repo: repo, orders: orders}
}

func validRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// verified reports whether the order is completed and actually contains the
// reviewed menu item.
func verified(o *order.Order, menuItemID uuid.UUID) bool {
	if o.Status != order.StatusCompleted {
		return false
	}
	for _, l := range o.Lines {
		if l.MenuItemID == menuItemID {
			return true
		}
	}
	return false
}

func (s *service) CreateReview(ctx context.Context, caller *auth.Principal, input CreateInput) (*Review, error) {
	if !validRating(input.Rating) {
		return nil, ErrInvalidRating
	}

	o, err := s.orders.GetByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to load order for review: %w", err)
	}
	if o.CustomerID != caller.UserID {
		return nil, ErrNotOrderOwner
	}

	rv := &Review{
		CustomerID: caller.UserID,
		MenuItemID: input.MenuItemID,
		OrderID:    input.OrderID,
		Rating:     input.Rating,
		Comment:    input.Comment,
		IsVerified: verified(o, input.MenuItemID),
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		log.Error().Err(err).Stringer("order_id", input.OrderID).Msg("service: failed to create review")
		return nil, fmt.Errorf("service: failed to create review: %w", err)
	}
	return rv, nil
}

func (s *service) GetReview(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Review, error) {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get review: %w", err)
	}
	if !caller.IsStaffMember() && rv.CustomerID != caller.UserID {
		return nil, ErrNotFound
	}
	return rv, nil
}

func (s *service) ListReviews(ctx context.Context, caller *auth.Principal, filter Filter) ([]Review, error) {
	if !caller.IsStaffMember() {
		filter.CustomerID = &caller.UserID
	}
	reviews, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *service) UpdateReview(ctx context.Context, caller *auth.Principal, id uuid.UUID, update Update) (*Review, error) {
	rv, err := s.GetReview(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if rv.CustomerID != caller.UserID {
		return nil, ErrForbidden
	}

	if update.Rating != nil {
		if !validRating(*update.Rating) {
			return nil, ErrInvalidRating
		}
		rv.Rating = *update.Rating
	}
	if update.Comment != nil {
		rv.Comment = *update.Comment
	}

	if err := s.repo.Update(ctx, rv); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to update review: %w", err)
	}
	return rv, nil
}

// DeleteReview lets the author remove a review; staff may moderate.
func (s *service) DeleteReview(ctx context.Context, caller *auth.Principal, id uuid.UUID) error {
	if _, err := s.GetReview(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to delete review: %w", err)
	}
	return nil
}

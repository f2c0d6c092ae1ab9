package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrInvalidEvent = errors.New("invalid notification event")

// Publisher delivers an event to its recipient. Producers (orders, payments,
// inventory) depend only on this.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Service interface {
	Publisher
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (e Event) validate() error {
	if e.UserID == uuid.Nil || !e.Type.Valid() || e.Title == "" {
		return ErrInvalidEvent
	}
	return nil
}

// Publish stores the notification row directly.
func (s *service) Publish(ctx context.Context, event Event) error {
	if err := event.validate(); err != nil {
		return err
	}

	n := &Notification{
		UserID:  event.UserID,
		Type:    event.Type,
		Title:   event.Title,
		Message: event.Message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Error().Err(err).Stringer("user_id", event.UserID).Msg("service: failed to store notification")
		return fmt.Errorf("service: failed to store notification: %w", err)
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to mark notification read: %w", err)
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service: failed to mark notifications read: %w", err)
	}
	return n, nil
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/user"
)

var (
	ErrInvalidDay   = errors.New("invalid day of week")
	ErrInvalidTime  = errors.New("times must use HH:MM")
	ErrInvalidShift = errors.New("end time must be after start time")
	ErrNotStaff     = errors.New("schedules can only be assigned to staff members")
)

// Users is satisfied by user.Repository.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service interface {
	CreateSchedule(ctx context.Context, s *Schedule) (*Schedule, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error)
	ListSchedules(ctx context.Context, filter Filter) ([]Schedule, error)
	UpdateSchedule(ctx context.Context, s *Schedule) (*Schedule, error)
	DeleteSchedule(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo  Repository
	users Users
}

func NewService(repo Repository, users Users) Service {
	return &service{repo: repo, users: users}
}

func (s *service) validate(ctx context.Context, sc *Schedule) error {
	if !sc.Day.Valid() {
		return ErrInvalidDay
	}
	start, err := time.Parse(ClockLayout, sc.StartTime)
	if err != nil {
		return ErrInvalidTime
	}
	end, err := time.Parse(ClockLayout, sc.EndTime)
	if err != nil {
		return ErrInvalidTime
	}
	if !end.After(start) {
		return ErrInvalidShift
	}

	u, err := s.users.GetByID(ctx, sc.StaffID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUnknownStaff
		}
		return fmt.Errorf("service: failed to load staff member: %w", err)
	}
	if !u.IsStaffMember() {
		return ErrNotStaff
	}
	sc.StaffName = u.FullName()
	return nil
}

func (s *service) CreateSchedule(ctx context.Context, sc *Schedule) (*Schedule, error) {
	if err := s.validate(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sc); err != nil {
		if errors.Is(err, ErrDuplicateShift) || errors.Is(err, ErrUnknownStaff) {
			return nil, err
		}
		log.Error().Err(err).Stringer("staff_id", sc.StaffID).Msg("service: failed to create schedule")
		return nil, fmt.Errorf("service: failed to create schedule: %w", err)
	}
	return sc, nil
}

func (s *service) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	sc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get schedule: %w", err)
	}
	return sc, nil
}

func (s *service) ListSchedules(ctx context.Context, filter Filter) ([]Schedule, error) {
	if filter.Day != "" && !filter.Day.Valid() {
		return nil, ErrInvalidDay
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list schedules: %w", err)
	}
	return list, nil
}

func (s *service) UpdateSchedule(ctx context.Context, sc *Schedule) (*Schedule, error) {
	if err := s.validate(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sc); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateShift) || errors.Is(err, ErrUnknownStaff) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to update schedule: %w", err)
	}
	return sc, nil
}

func (s *service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to delete schedule: %w", err)
	}
	return nil
}

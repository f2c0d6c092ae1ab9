package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
)

var (
	ErrPartyTooLarge     = errors.New("party size exceeds table capacity")
	ErrTableUnavailable  = errors.New("table is not available for reservations")
	ErrInPast            = errors.New("reservation must start in the future")
	ErrInvalidDuration   = errors.New("duration must be positive")
	ErrInvalidPartySize  = errors.New("party size must be positive")
	ErrInvalidStatus     = errors.New("invalid reservation status")
	ErrInvalidCapacity   = errors.New("capacity must be positive")
	ErrForbidden         = errors.New("not allowed to modify this reservation")
	ErrInvalidTableState = errors.New("invalid table status")
)

const defaultDuration = 60

type CreateInput struct {
	TableID         uuid.UUID
	StartsAt        time.Time
	Duration        int
	PartySize       int
	SpecialRequests string
}

type Service interface {
	CreateTable(ctx context.Context, t *Table) (*Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (*Table, error)
	ListTables(ctx context.Context, caller *auth.Principal) ([]Table, error)
	UpdateTable(ctx context.Context, t *Table) (*Table, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error

	CreateReservation(ctx context.Context, caller *auth.Principal, input CreateInput) (*Reservation, error)
	GetReservation(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Reservation, error)
	ListReservations(ctx context.Context, caller *auth.Principal, filter Filter) ([]Reservation, error)
	UpdateReservation(ctx context.Context, caller *auth.Principal, id uuid.UUID, update Update) (*Reservation, error)
	DeleteReservation(ctx context.Context, caller *auth.Principal, id uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func validateTable(t *Table) error {
	if t.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if t.Status == "" {
		t.Status = TableAvailable
	}
	if !t.Status.Valid() {
		return ErrInvalidTableState
	}
	return nil
}

func (s *service) CreateTable(ctx context.Context, t *Table) (*Table, error) {
	if err := validateTable(t); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTable(ctx, t); err != nil {
		if errors.Is(err, ErrTableNumberExists) {
			return nil, ErrTableNumberExists
		}
		log.Error().Err(err).Str("number", t.Number).Msg("service: failed to create table")
		return nil, fmt.Errorf("service: failed to create table: %w", err)
	}
	return t, nil
}

func (s *service) GetTable(ctx context.Context, id uuid.UUID) (*Table, error) {
	t, err := s.repo.GetTable(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTableNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("service: failed to get table: %w", err)
	}
	return t, nil
}

func (s *service) ListTables(ctx context.Context, caller *auth.Principal) ([]Table, error) {
	tables, err := s.repo.ListTables(ctx, !caller.IsStaffMember())
	if err != nil {
		return nil, fmt.Errorf("service: failed to list tables: %w", err)
	}
	return tables, nil
}

func (s *service) UpdateTable(ctx context.Context, t *Table) (*Table, error) {
	if err := validateTable(t); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTable(ctx, t); err != nil {
		if errors.Is(err, ErrTableNotFound) || errors.Is(err, ErrTableNumberExists) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to update table: %w", err)
	}
	return t, nil
}

func (s *service) DeleteTable(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteTable(ctx, id); err != nil {
		if errors.Is(err, ErrTableNotFound) {
			return ErrTableNotFound
		}
		return fmt.Errorf("service: failed to delete table: %w", err)
	}
	return nil
}

// checkFits validates the party against the table and the start against the
// clock. Overlap is checked by the repository under a lock.
func (s *service) checkFits(ctx context.Context, res *Reservation) error {
	if res.Duration <= 0 {
		return ErrInvalidDuration
	}
	if res.PartySize <= 0 {
		return ErrInvalidPartySize
	}

	t, err := s.GetTable(ctx, res.TableID)
	if err != nil {
		return err
	}
	if !t.IsActive || t.Status == TableMaintenance {
		return ErrTableUnavailable
	}
	if res.PartySize > t.Capacity {
		return fmt.Errorf("%w: table %s seats %d", ErrPartyTooLarge, t.Number, t.Capacity)
	}
	res.TableNumber = t.Number
	return nil
}

func (s *service) wallNow() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), n.Minute(), n.Second(), 0, time.UTC)
}

func (s *service) CreateReservation(ctx context.Context, caller *auth.Principal, input CreateInput) (*Reservation, error) {
	res := &Reservation{
		CustomerID:      caller.UserID,
		TableID:         input.TableID,
		StartsAt:        input.StartsAt,
		Duration:        input.Duration,
		PartySize:       input.PartySize,
		Status:          StatusPending,
		SpecialRequests: input.SpecialRequests,
	}
	if res.Duration == 0 {
		res.Duration = defaultDuration
	}
	if !res.StartsAt.After(s.wallNow()) {
		return nil, ErrInPast
	}
	if err := s.checkFits(ctx, res); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, res); err != nil {
		if errors.Is(err, ErrOverlap) || errors.Is(err, ErrTableNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("table_id", res.TableID).Msg("service: failed to create reservation")
		return nil, fmt.Errorf("service: failed to create reservation: %w", err)
	}

	log.Info().Stringer("reservation_id", res.ID).Stringer("table_id", res.TableID).Time("starts_at", res.StartsAt).Msg("service: reservation created")
	return res, nil
}

func (s *service) GetReservation(ctx context.Context, caller *auth.Principal, id uuid.UUID) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("service: failed to get reservation: %w", err)
	}
	if !caller.IsStaffMember() && res.CustomerID != caller.UserID {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

func (s *service) ListReservations(ctx context.Context, caller *auth.Principal, filter Filter) ([]Reservation, error) {
	if !caller.IsStaffMember() {
		filter.CustomerID = &caller.UserID
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list reservations: %w", err)
	}
	return list, nil
}

// UpdateReservation applies a partial update. Customers may reschedule or
// cancel their own reservations; confirming and completing is staff work.
func (s *service) UpdateReservation(ctx context.Context, caller *auth.Principal, id uuid.UUID, update Update) (*Reservation, error) {
	res, err := s.GetReservation(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		if !caller.IsStaffMember() && *update.Status != StatusCancelled && *update.Status != res.Status {
			return nil, ErrForbidden
		}
		res.Status = *update.Status
	}
	if update.StartsAt != nil {
		if !update.StartsAt.After(s.wallNow()) {
			return nil, ErrInPast
		}
		res.StartsAt = *update.StartsAt
	}
	if update.Duration != nil {
		res.Duration = *update.Duration
	}
	if update.PartySize != nil {
		res.PartySize = *update.PartySize
	}
	if update.SpecialRequests != nil {
		res.SpecialRequests = *update.SpecialRequests
	}

	if res.Status.Active() {
		if err := s.checkFits(ctx, res); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, res); err != nil {
		if errors.Is(err, ErrOverlap) || errors.Is(err, ErrReservationNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("reservation_id", id).Msg("service: failed to update reservation")
		return nil, fmt.Errorf("service: failed to update reservation: %w", err)
	}
	return res, nil
}

func (s *service) DeleteReservation(ctx context.Context, caller *auth.Principal, id uuid.UUID) error {
	if _, err := s.GetReservation(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return ErrReservationNotFound
		}
		return fmt.Errorf("service: failed to delete reservation: %w", err)
	}
	return nil
}

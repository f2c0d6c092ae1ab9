package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/campus-cafe/internal/db"
)

var (
	ErrNotFound       = errors.New("schedule not found")
	ErrDuplicateShift = errors.New("staff member already has a shift on this day")
	ErrUnknownStaff   = errors.New("staff member does not exist")
)

type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	List(ctx context.Context, filter Filter) ([]Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const scheduleQuery = `
	SELECT s.id, s.staff_id, trim(u.first_name || ' ' || u.last_name), s.day,
		to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI'), s.is_active
	FROM staff_schedules s
	JOIN users u ON u.id = s.staff_id
`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	if err := row.Scan(&s.ID, &s.StaffID, &s.StaffName, &s.Day, &s.StartTime, &s.EndTime, &s.IsActive); err != nil {
		return nil, err
	}
	return &s, nil
}

func mapWriteErr(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return ErrDuplicateShift
	case db.IsForeignKeyViolation(err):
		return ErrUnknownStaff
	}
	return err
}

func (r *postgresRepository) Create(ctx context.Context, s *Schedule) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate schedule ID: %w", err)
	}
	s.ID = id

	_, err = r.db.Exec(ctx, `
		INSERT INTO staff_schedules (id, staff_id, day, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4::time, $5::time, $6)`,
		s.ID, s.StaffID, string(s.Day), s.StartTime, s.EndTime, s.IsActive,
	)
	if err != nil {
		if mapped := mapWriteErr(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("repository: failed to insert schedule: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	s, err := scanSchedule(r.db.QueryRow(ctx, scheduleQuery+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select schedule %s: %w", id, err)
	}
	return s, nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Schedule, error) {
	var (
		conds []string
		args  []any
	)
	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		conds = append(conds, "s.staff_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Day != "" {
		args = append(args, string(filter.Day))
		conds = append(conds, "s.day = $"+strconv.Itoa(len(args)))
	}

	query := scheduleQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY array_position(ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday']::text[], s.day::text), s.start_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]Schedule, 0)
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating schedules: %w", err)
	}
	return schedules, nil
}

func (r *postgresRepository) Update(ctx context.Context, s *Schedule) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE staff_schedules
		SET staff_id = $1, day = $2, start_time = $3::time, end_time = $4::time, is_active = $5
		WHERE id = $6`,
		s.StaffID, string(s.Day), s.StartTime, s.EndTime, s.IsActive, s.ID,
	)
	if err != nil {
		if mapped := mapWriteErr(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("repository: failed to update schedule %s: %w", s.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM staff_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete schedule %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

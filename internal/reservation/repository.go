package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/campus-cafe/internal/db"
)

var (
	ErrTableNotFound       = errors.New("table not found")
	ErrTableNumberExists   = errors.New("table number already exists")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrOverlap             = errors.New("table is already reserved for that time")
)

type Repository interface {
	CreateTable(ctx context.Context, t *Table) error
	GetTable(ctx context.Context, id uuid.UUID) (*Table, error)
	ListTables(ctx context.Context, activeOnly bool) ([]Table, error)
	UpdateTable(ctx context.Context, t *Table) error
	DeleteTable(ctx context.Context, id uuid.UUID) error

	// Create and Save lock the table row and reject slots overlapping an
	// active reservation in the same transaction as the write.
	Create(ctx context.Context, r *Reservation) error
	Save(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateTable(ctx context.Context, t *Table) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate table ID: %w", err)
	}
	t.ID = id

	_, err = r.db.Exec(ctx, `
		INSERT INTO tables (id, number, capacity, status, location, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Number, t.Capacity, string(t.Status), t.Location, t.IsActive,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrTableNumberExists
		}
		return fmt.Errorf("repository: failed to insert table: %w", err)
	}
	return nil
}

func scanTable(row pgx.Row) (*Table, error) {
	var t Table
	if err := row.Scan(&t.ID, &t.Number, &t.Capacity, &t.Status, &t.Location, &t.IsActive); err != nil {
		return nil, err
	}
	return &t, nil
}

const tableColumns = `id, number, capacity, status, location, is_active`

func (r *postgresRepository) GetTable(ctx context.Context, id uuid.UUID) (*Table, error) {
	t, err := scanTable(r.db.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("repository: failed to select table %s: %w", id, err)
	}
	return t, nil
}

func (r *postgresRepository) ListTables(ctx context.Context, activeOnly bool) ([]Table, error) {
	query := `SELECT ` + tableColumns + ` FROM tables`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY number`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query tables: %w", err)
	}
	defer rows.Close()

	tables := make([]Table, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan table: %w", err)
		}
		tables = append(tables, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating tables: %w", err)
	}
	return tables, nil
}

func (r *postgresRepository) UpdateTable(ctx context.Context, t *Table) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE tables SET number = $1, capacity = $2, status = $3, location = $4, is_active = $5
		WHERE id = $6`,
		t.Number, t.Capacity, string(t.Status), t.Location, t.IsActive, t.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrTableNumberExists
		}
		return fmt.Errorf("repository: failed to update table %s: %w", t.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTableNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteTable(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM tables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete table %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTableNotFound
	}
	return nil
}

// checkSlot locks the table and looks for an active reservation whose
// [start, end) intersects the candidate's.
func checkSlot(ctx context.Context, tx pgx.Tx, res *Reservation) error {
	var locked uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM tables WHERE id = $1 FOR UPDATE`, res.TableID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTableNotFound
		}
		return fmt.Errorf("repository: failed to lock table %s: %w", res.TableID, err)
	}

	if !res.Status.Active() {
		return nil
	}

	var overlaps bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE table_id = $1
				AND id <> $2
				AND status IN ('pending', 'confirmed')
				AND starts_at < $4
				AND starts_at + make_interval(mins => duration) > $3
		)`,
		res.TableID, res.ID, res.StartsAt, res.EndsAt(),
	).Scan(&overlaps)
	if err != nil {
		return fmt.Errorf("repository: failed to check reservation overlap: %w", err)
	}
	if overlaps {
		return ErrOverlap
	}
	return nil
}

func (r *postgresRepository) Create(ctx context.Context, res *Reservation) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate reservation ID: %w", err)
	}
	res.ID = id
	res.CreatedAt = time.Now().UTC()

	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := checkSlot(ctx, tx, res); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO reservations (id, customer_id, table_id, starts_at, duration, party_size, status,
				special_requests, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			res.ID, res.CustomerID, res.TableID, res.StartsAt, res.Duration, res.PartySize,
			string(res.Status), res.SpecialRequests, res.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert reservation: %w", err)
		}
		return nil
	})
}

func (r *postgresRepository) Save(ctx context.Context, res *Reservation) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := checkSlot(ctx, tx, res); err != nil {
			return err
		}
		cmdTag, err := tx.Exec(ctx, `
			UPDATE reservations
			SET starts_at = $1, duration = $2, party_size = $3, status = $4, special_requests = $5
			WHERE id = $6`,
			res.StartsAt, res.Duration, res.PartySize, string(res.Status), res.SpecialRequests, res.ID,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to update reservation %s: %w", res.ID, err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrReservationNotFound
		}
		return nil
	})
}

const reservationQuery = `
	SELECT r.id, r.customer_id, r.table_id, t.number, r.starts_at, r.duration, r.party_size,
		r.status, r.special_requests, r.created_at
	FROM reservations r
	JOIN tables t ON t.id = r.table_id
`

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	err := row.Scan(
		&res.ID,
		&res.CustomerID,
		&res.TableID,
		&res.TableNumber,
		&res.StartsAt,
		&res.Duration,
		&res.PartySize,
		&res.Status,
		&res.SpecialRequests,
		&res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, reservationQuery+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("repository: failed to select reservation %s: %w", id, err)
	}
	return res, nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Reservation, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.CustomerID != nil {
		add("r.customer_id = ?", *filter.CustomerID)
	}
	if filter.TableID != nil {
		add("r.table_id = ?", *filter.TableID)
	}
	if filter.Status != "" {
		add("r.status = ?", string(filter.Status))
	}
	if filter.Date != nil {
		add("r.starts_at::date = ?::date", *filter.Date)
	}

	query := reservationQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.starts_at"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query reservations: %w", err)
	}
	defer rows.Close()

	list := make([]Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan reservation: %w", err)
		}
		list = append(list, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating reservations: %w", err)
	}
	return list, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete reservation %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

package inventory

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
)

var (
	ErrNotFound          = errors.New("inventory item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	List(ctx context.Context, filter Filter) ([]Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AdjustStock adds delta to current_stock atomically. A negative result
	// is rejected with ErrInsufficientStock. restock also stamps
	// last_restocked.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int, restock bool) (*Item, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const itemColumns = `id, name, description, current_stock, minimum_stock, unit, cost_per_unit, supplier,
	last_restocked, is_active, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.CurrentStock,
		&i.MinimumStock,
		&i.Unit,
		&i.CostPerUnit,
		&i.Supplier,
		&i.LastRestocked,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *postgresRepository) Create(ctx context.Context, item *Item) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate inventory ID: %w", err)
	}
	item.ID = id
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err = r.db.Exec(ctx, `
		INSERT INTO inventory (id, name, description, current_stock, minimum_stock, unit, cost_per_unit, supplier,
			last_restocked, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID, item.Name, item.Description, item.CurrentStock, item.MinimumStock, item.Unit, item.CostPerUnit,
		item.Supplier, item.LastRestocked, item.IsActive, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert inventory item: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select inventory item %s: %w", id, err)
	}
	return item, nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Item, error) {
	var (
		conds []string
		args  []any
	)
	if filter.LowStockOnly {
		conds = append(conds, "current_stock <= minimum_stock")
	}
	if filter.ActiveOnly {
		conds = append(conds, "is_active")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, "(name ILIKE $"+n+" OR supplier ILIKE $"+n+")")
	}

	query := `SELECT ` + itemColumns + ` FROM inventory`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query inventory: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan inventory item: %w", err)
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating inventory: %w", err)
	}
	return items, nil
}

func (r *postgresRepository) Update(ctx context.Context, item *Item) error {
	item.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE inventory
		SET name = $1, description = $2, current_stock = $3, minimum_stock = $4, unit = $5, cost_per_unit = $6,
			supplier = $7, is_active = $8, updated_at = $9
		WHERE id = $10`,
		item.Name, item.Description, item.CurrentStock, item.MinimumStock, item.Unit, item.CostPerUnit,
		item.Supplier, item.IsActive, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update inventory item %s: %w", item.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM inventory WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete inventory item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int, restock bool) (*Item, error) {
	now := time.Now().UTC()
	item, err := scanItem(r.db.QueryRow(ctx, `
		UPDATE inventory
		SET current_stock = current_stock + $1,
			last_restocked = CASE WHEN $2 THEN $3 ELSE last_restocked END,
			updated_at = $3
		WHERE id = $4 AND current_stock + $1 >= 0
		RETURNING `+itemColumns,
		delta, restock, now, id,
	))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: failed to adjust stock of %s: %w", id, err)
	}

	// No row updated: either the item is missing or the stock would go negative.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInsufficientStock
}

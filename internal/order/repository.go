package order

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
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/db"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrDuplicateLine = errors.New("menu item is already on this order")
)

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)
	// Modify loads the order under a row lock, applies fn and writes the
	// order row and its lines back in the same transaction.
	Modify(ctx context.Context, id uuid.UUID, fn func(*Order) error) (*Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, customer_id, status, payment_status, payment_method, subtotal, tax_amount,
	total_amount, notes, created_at, updated_at, completed_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.Subtotal,
		&o.TaxAmount,
		&o.TotalAmount,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Lines = make([]Line, 0)
	return &o, nil
}

func (r *postgresRepository) Create(ctx context.Context, order *Order) error {
	id, err := uuid.NewV4()
	if err != nil {
		log.Error().Err(err).Msg("repository: failed to generate order ID")
		return fmt.Errorf("repository: failed to generate order ID: %w", err)
	}
	order.ID = id

	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_id, status, payment_status, payment_method, subtotal,
				tax_amount, total_amount, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			order.ID,
			order.CustomerID,
			string(order.Status),
			string(order.PaymentStatus),
			string(order.PaymentMethod),
			order.Subtotal,
			order.TaxAmount,
			order.TotalAmount,
			order.Notes,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order: %w", err)
		}

		for i := range order.Lines {
			if err := insertLine(ctx, tx, order.ID, &order.Lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertLine(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, line *Line) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate order item ID: %w", err)
	}
	line.ID = id
	line.OrderID = orderID
	line.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price, special_instructions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		line.ID,
		line.OrderID,
		line.MenuItemID,
		line.Quantity,
		line.UnitPrice,
		line.SpecialInstructions,
		line.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateLine
		}
		return fmt.Errorf("repository: failed to insert order item for order %s: %w", orderID, err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	lines, err := loadLines(ctx, r.db, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if l, ok := lines[id]; ok {
		o.Lines = l
	}
	return o, nil
}

func loadLines(ctx context.Context, q querier, orderIDs []uuid.UUID) (map[uuid.UUID][]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.menu_item_id, m.name, oi.quantity, oi.unit_price,
			oi.special_instructions, oi.created_at
		FROM order_items oi
		JOIN menu_items m ON m.id = oi.menu_item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.created_at, oi.id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]Line, len(orderIDs))
	for rows.Next() {
		var l Line
		err := rows.Scan(
			&l.ID,
			&l.OrderID,
			&l.MenuItemID,
			&l.MenuItemName,
			&l.Quantity,
			&l.UnitPrice,
			&l.SpecialInstructions,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		result[l.OrderID] = append(result[l.OrderID], l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating order items: %w", err)
	}
	return result, nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Order, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, "customer_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	orderRows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer orderRows.Close()

	orders := make([]Order, 0)
	var orderIDs []uuid.UUID
	for orderRows.Next() {
		o, err := scanOrder(orderRows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, *o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err = orderRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return orders, nil
	}

	lines, err := loadLines(ctx, r.db, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if l, ok := lines[orders[i].ID]; ok {
			orders[i].Lines = l
		}
	}
	return orders, nil
}

func (r *postgresRepository) Modify(ctx context.Context, id uuid.UUID, fn func(*Order) error) (*Order, error) {
	var result *Order

	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("repository: failed to lock order %s: %w", id, err)
		}

		lines, err := loadLines(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if l, ok := lines[id]; ok {
			o.Lines = l
		}

		if err := fn(o); err != nil {
			return err
		}

		o.UpdatedAt = time.Now().UTC()
		_, err = tx.Exec(ctx, `
			UPDATE orders
			SET status = $1, payment_status = $2, payment_method = $3, subtotal = $4, tax_amount = $5,
				total_amount = $6, notes = $7, updated_at = $8, completed_at = $9
			WHERE id = $10`,
			string(o.Status),
			string(o.PaymentStatus),
			string(o.PaymentMethod),
			o.Subtotal,
			o.TaxAmount,
			o.TotalAmount,
			o.Notes,
			o.UpdatedAt,
			o.CompletedAt,
			o.ID,
		)
		if err != nil {
			log.Error().Err(err).Stringer("order_id", id).Msg("repository: failed to update order")
			return fmt.Errorf("repository: failed to update order %s: %w", id, err)
		}

		if err := syncLines(ctx, tx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// syncLines deletes lines dropped by the mutation, inserts new ones (those
// without an ID) and rewrites the rest.
func syncLines(ctx context.Context, tx pgx.Tx, o *Order) error {
	keep := make([]uuid.UUID, 0, len(o.Lines))
	for _, l := range o.Lines {
		if l.ID != uuid.Nil {
			keep = append(keep, l.ID)
		}
	}

	_, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1 AND NOT (id = ANY($2))`, o.ID, keep)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order items for order %s: %w", o.ID, err)
	}

	for i := range o.Lines {
		line := &o.Lines[i]
		if line.ID == uuid.Nil {
			if err := insertLine(ctx, tx, o.ID, line); err != nil {
				return err
			}
			continue
		}

		_, err := tx.Exec(ctx, `
			UPDATE order_items
			SET quantity = $1, special_instructions = $2
			WHERE id = $3 AND order_id = $4`,
			line.Quantity,
			line.SpecialInstructions,
			line.ID,
			o.ID,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to update order item %s: %w", line.ID, err)
		}
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		log.Warn().Stringer("order_id", id).Msg("repository: order not found for delete")
		return ErrOrderNotFound
	}
	return nil
}

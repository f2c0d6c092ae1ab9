package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Stats(ctx context.Context, today time.Time) (*DashboardStats, error)
	DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error)
	CategorySales(ctx context.Context, from, to time.Time) ([]CategorySales, error)
}

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

const statsQuery = `
	SELECT
		(SELECT count(*) FROM orders) AS total_orders,
		(SELECT coalesce(sum(total_amount), 0) FROM orders) AS total_revenue,
		(SELECT count(*) FROM users WHERE role = 'customer') AS total_customers,
		(SELECT count(*) FROM menu_items WHERE is_active) AS total_menu_items,
		(SELECT count(*) FROM orders WHERE status IN ('pending', 'confirmed', 'preparing')) AS pending_orders,
		(SELECT count(*) FROM inventory WHERE current_stock <= minimum_stock) AS low_stock_items,
		(SELECT coalesce(sum(total_amount), 0) FROM orders WHERE created_at::date = $1::date) AS today_revenue,
		(SELECT count(*) FROM orders WHERE created_at::date = $1::date) AS today_orders,
		(SELECT count(*) FROM meal_logs WHERE meal_date = $1::date) AS today_meals`

func (r *sqlxRepository) Stats(ctx context.Context, today time.Time) (*DashboardStats, error) {
	var stats DashboardStats
	if err := r.db.GetContext(ctx, &stats, statsQuery, today); err != nil {
		return nil, fmt.Errorf("repository: failed to query dashboard stats: %w", err)
	}
	return &stats, nil
}

// DailySales returns one row per day in [from, to], zero-filled.
func (r *sqlxRepository) DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	const query = `
		SELECT d::date AS day,
			coalesce(sum(o.total_amount), 0) AS revenue,
			count(o.id) AS orders
		FROM generate_series($1::date, $2::date, interval '1 day') AS d
		LEFT JOIN orders o ON o.created_at::date = d::date AND o.status = 'completed'
		GROUP BY d
		ORDER BY d`

	sales := make([]DailySales, 0)
	if err := r.db.SelectContext(ctx, &sales, query, from, to); err != nil {
		return nil, fmt.Errorf("repository: failed to query daily sales: %w", err)
	}
	return sales, nil
}

// CategorySales attributes line revenue of completed orders to the line's
// menu category.
func (r *sqlxRepository) CategorySales(ctx context.Context, from, to time.Time) ([]CategorySales, error) {
	const query = `
		SELECT c.name AS category,
			coalesce(sum(oi.unit_price * oi.quantity) FILTER (WHERE o.id IS NOT NULL), 0) AS revenue,
			count(DISTINCT o.id) AS orders
		FROM categories c
		LEFT JOIN menu_items m ON m.category_id = c.id
		LEFT JOIN order_items oi ON oi.menu_item_id = m.id
		LEFT JOIN orders o ON o.id = oi.order_id
			AND o.status = 'completed'
			AND o.created_at::date BETWEEN $1::date AND $2::date
		GROUP BY c.name
		ORDER BY revenue DESC, c.name`

	sales := make([]CategorySales, 0)
	if err := r.db.SelectContext(ctx, &sales, query, from, to); err != nil {
		return nil, fmt.Errorf("repository: failed to query category sales: %w", err)
	}
	return sales, nil
}

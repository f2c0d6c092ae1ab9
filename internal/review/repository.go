package review

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
	ErrNotFound      = errors.New("review not found")
	ErrAlreadyExists = errors.New("this item has already been reviewed for this order")
)

type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	List(ctx context.Context, filter Filter) ([]Review, error)
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const reviewQuery = `
	SELECT r.id, r.customer_id, r.menu_item_id, m.name, r.order_id, r.rating, r.comment, r.is_verified, r.created_at
	FROM reviews r
	JOIN menu_items m ON m.id = r.menu_item_id
`

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(
		&rv.ID,
		&rv.CustomerID,
		&rv.MenuItemID,
		&rv.MenuItemName,
		&rv.OrderID,
		&rv.Rating,
		&rv.Comment,
		&rv.IsVerified,
		&rv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *postgresRepository) Create(ctx context.Context, rv *Review) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate review ID: %w", err)
	}
	rv.ID = id
	rv.CreatedAt = time.Now().UTC()

	_, err = r.db.Exec(ctx, `
		INSERT INTO reviews (id, customer_id, menu_item_id, order_id, rating, comment, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rv.ID, rv.CustomerID, rv.MenuItemID, rv.OrderID, rv.Rating, rv.Comment, rv.IsVerified, rv.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("repository: failed to insert review: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	rv, err := scanReview(r.db.QueryRow(ctx, reviewQuery+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select review %s: %w", id, err)
	}
	return rv, nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Review, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if filter.CustomerID != nil {
		add("r.customer_id = ?", *filter.CustomerID)
	}
	if filter.MenuItemID != nil {
		add("r.menu_item_id = ?", *filter.MenuItemID)
	}
	if filter.Rating != 0 {
		add("r.rating = ?", filter.Rating)
	}

	query := reviewQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating reviews: %w", err)
	}
	return reviews, nil
}

func (r *postgresRepository) Update(ctx context.Context, rv *Review) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE reviews SET rating = $1, comment = $2 WHERE id = $3`, rv.Rating, rv.Comment, rv.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update review %s: %w", rv.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete review %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package menu

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
	ErrCategoryNotFound = errors.New("category not found")
	ErrItemNotFound     = errors.New("menu item not found")
	ErrCategoryExists   = errors.New("category name already exists")
)

type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func newID() (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate id: %w", err)
	}
	return id, nil
}

const categoryQuery = `
	SELECT c.id, c.name, c.description, c.image, c.is_active, c.created_at, c.updated_at,
		(SELECT count(*) FROM menu_items m WHERE m.category_id = c.id AND m.is_active) AS items_count
	FROM categories c
`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Image, &c.IsActive, &c.CreatedAt, &c.UpdatedAt, &c.MenuItemsCount)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	id, err := newID()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt

	_, err = r.db.Exec(ctx, `
		INSERT INTO categories (id, name, description, image, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Description, c.Image, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrCategoryExists
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, categoryQuery+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category %s: %w", id, err)
	}
	return c, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	query := categoryQuery
	if activeOnly {
		query += ` WHERE c.is_active`
	}
	query += ` ORDER BY c.name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, c *Category) error {
	c.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE categories
		SET name = $1, description = $2, image = $3, is_active = $4, updated_at = $5
		WHERE id = $6`,
		c.Name, c.Description, c.Image, c.IsActive, c.UpdatedAt, c.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrCategoryExists
		}
		return fmt.Errorf("repository: failed to update category %s: %w", c.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete category %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

const itemQuery = `
	SELECT m.id, m.name, m.description, m.category_id, c.name, m.price, m.cost, m.image,
		m.availability, m.preparation_time, m.calories, m.allergens, m.is_featured, m.is_active,
		m.created_at, m.updated_at
	FROM menu_items m
	JOIN categories c ON c.id = m.category_id
`

func scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.CategoryID,
		&i.CategoryName,
		&i.Price,
		&i.Cost,
		&i.Image,
		&i.Availability,
		&i.PreparationTime,
		&i.Calories,
		&i.Allergens,
		&i.IsFeatured,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *postgresRepository) CreateItem(ctx context.Context, item *Item) error {
	id, err := newID()
	if err != nil {
		return err
	}
	item.ID = id
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt

	_, err = r.db.Exec(ctx, `
		INSERT INTO menu_items (id, name, description, category_id, price, cost, image, availability,
			preparation_time, calories, allergens, is_featured, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		item.ID, item.Name, item.Description, item.CategoryID, item.Price, item.Cost, item.Image,
		string(item.Availability), item.PreparationTime, item.Calories, item.Allergens,
		item.IsFeatured, item.IsActive, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("repository: failed to insert menu item: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := scanItem(r.db.QueryRow(ctx, itemQuery+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select menu item %s: %w", id, err)
	}
	return item, nil
}

func (r *postgresRepository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if filter.CategoryID != nil {
		add("m.category_id = ?", *filter.CategoryID)
	}
	if filter.Availability != "" {
		add("m.availability = ?", string(filter.Availability))
	}
	if filter.Featured != nil {
		add("m.is_featured = ?", *filter.Featured)
	}
	if filter.Search != "" {
		add("(m.name ILIKE ? OR m.description ILIKE ?)", "%"+filter.Search+"%")
	}
	if filter.OrderableOnly {
		conds = append(conds, "m.is_active", "m.availability = 'available'")
	}

	query := itemQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY c.name, m.name"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan menu item: %w", err)
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating menu items: %w", err)
	}
	return items, nil
}

func (r *postgresRepository) UpdateItem(ctx context.Context, item *Item) error {
	item.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE menu_items
		SET name = $1, description = $2, category_id = $3, price = $4, cost = $5, image = $6,
			availability = $7, preparation_time = $8, calories = $9, allergens = $10,
			is_featured = $11, is_active = $12, updated_at = $13
		WHERE id = $14`,
		item.Name, item.Description, item.CategoryID, item.Price, item.Cost, item.Image,
		string(item.Availability), item.PreparationTime, item.Calories, item.Allergens,
		item.IsFeatured, item.IsActive, item.UpdatedAt, item.ID,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("repository: failed to update menu item %s: %w", item.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete menu item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

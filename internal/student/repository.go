package student

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
	ErrNotFound        = errors.New("student not found")
	ErrStudentIDExists = errors.New("student with this student_id already exists")
	ErrMealNotFound    = errors.New("meal log not found")
	ErrDuplicateMeal   = errors.New("meal already logged for this student today")
	ErrBadgeKeyTaken   = errors.New("badge key already belongs to another student")
)

type Repository interface {
	Create(ctx context.Context, s *Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*Student, error)
	GetByStudentID(ctx context.Context, studentID string) (*Student, error)
	List(ctx context.Context, filter Filter) ([]Student, error)
	Update(ctx context.Context, s *Student) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SetBadgeKey records the badge key. Without force it only writes when
	// no key is set yet and reports whether the row changed.
	SetBadgeKey(ctx context.Context, id uuid.UUID, key string, force bool) (bool, error)
	// ClearBadgeKey drops the key only while the row still holds it.
	ClearBadgeKey(ctx context.Context, id uuid.UUID, key string) error

	CreateMeal(ctx context.Context, m *MealLog) error
	GetMeal(ctx context.Context, id int64) (*MealLog, error)
	ListMeals(ctx context.Context, filter MealFilter) ([]MealLog, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const studentColumns = `id, student_id, name, email, phone, department, year, photo_key, badge_key, created_at, updated_at`

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	err := row.Scan(
		&s.ID,
		&s.StudentID,
		&s.Name,
		&s.Email,
		&s.Phone,
		&s.Department,
		&s.Year,
		&s.PhotoKey,
		&s.BadgeKey,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepository) Create(ctx context.Context, s *Student) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate student ID: %w", err)
	}
	s.ID = id
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err = r.db.Exec(ctx, `
		INSERT INTO students (id, student_id, name, email, phone, department, year, photo_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.StudentID, s.Name, s.Email, s.Phone, s.Department, s.Year, s.PhotoKey, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrStudentIDExists
		}
		return fmt.Errorf("repository: failed to insert student: %w", err)
	}
	return nil
}

func (r *postgresRepository) getOne(ctx context.Context, where string, arg any) (*Student, error) {
	s, err := scanStudent(r.db.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select student: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Student, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *postgresRepository) GetByStudentID(ctx context.Context, studentID string) (*Student, error) {
	return r.getOne(ctx, "student_id = $1", studentID)
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Student, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.Department != "" {
		add("department = ?", filter.Department)
	}
	if filter.Year != 0 {
		add("year = ?", filter.Year)
	}
	if filter.Search != "" {
		add("(name ILIKE ? OR student_id ILIKE ?)", "%"+filter.Search+"%")
	}

	query := `SELECT ` + studentColumns + ` FROM students`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY student_id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query students: %w", err)
	}
	defer rows.Close()

	students := make([]Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan student: %w", err)
		}
		students = append(students, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating students: %w", err)
	}
	return students, nil
}

// Update writes the identity fields only; the badge key has its own path.
func (r *postgresRepository) Update(ctx context.Context, s *Student) error {
	s.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE students
		SET student_id = $1, name = $2, email = $3, phone = $4, department = $5, year = $6, photo_key = $7, updated_at = $8
		WHERE id = $9`,
		s.StudentID, s.Name, s.Email, s.Phone, s.Department, s.Year, s.PhotoKey, s.UpdatedAt, s.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrStudentIDExists
		}
		return fmt.Errorf("repository: failed to update student %s: %w", s.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete student %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) SetBadgeKey(ctx context.Context, id uuid.UUID, key string, force bool) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE students SET badge_key = $1, updated_at = now()
		WHERE id = $2 AND ($3 OR badge_key IS NULL)`,
		key, id, force,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return false, ErrBadgeKeyTaken
		}
		return false, fmt.Errorf("repository: failed to set badge of student %s: %w", id, err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *postgresRepository) ClearBadgeKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE students SET badge_key = NULL, updated_at = now()
		WHERE id = $1 AND badge_key = $2`,
		id, key,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to clear badge of student %s: %w", id, err)
	}
	return nil
}

const mealQuery = `
	SELECT l.id, l.student_id, s.name, s.student_id, l.meal_type, l.meal_date, l.description, l.logged_at
	FROM meal_logs l
	JOIN students s ON s.id = l.student_id
`

func scanMeal(row pgx.Row) (*MealLog, error) {
	var m MealLog
	err := row.Scan(&m.ID, &m.StudentID, &m.StudentName, &m.StudentCode, &m.MealType, &m.MealDate, &m.Description, &m.LoggedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *postgresRepository) CreateMeal(ctx context.Context, m *MealLog) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO meal_logs (student_id, meal_type, meal_date, description, logged_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		m.StudentID, string(m.MealType), m.MealDate, m.Description, m.LoggedAt,
	).Scan(&m.ID)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrDuplicateMeal
		case db.IsForeignKeyViolation(err):
			return ErrNotFound
		}
		return fmt.Errorf("repository: failed to insert meal log: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetMeal(ctx context.Context, id int64) (*MealLog, error) {
	m, err := scanMeal(r.db.QueryRow(ctx, mealQuery+` WHERE l.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMealNotFound
		}
		return nil, fmt.Errorf("repository: failed to select meal log %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresRepository) ListMeals(ctx context.Context, filter MealFilter) ([]MealLog, error) {
	var (
		conds []string
		args  []any
	)
	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		conds = append(conds, "l.student_id = $"+strconv.Itoa(len(args)))
	}
	if filter.MealType != "" {
		args = append(args, string(filter.MealType))
		conds = append(conds, "l.meal_type = $"+strconv.Itoa(len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conds = append(conds, "l.meal_date = $"+strconv.Itoa(len(args))+"::date")
	}

	query := mealQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY l.logged_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query meal logs: %w", err)
	}
	defer rows.Close()

	meals := make([]MealLog, 0)
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan meal log: %w", err)
		}
		meals = append(meals, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating meal logs: %w", err)
	}
	return meals, nil
}

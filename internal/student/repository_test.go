package student_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/campus-cafe/internal/config"
	"github.com/vasiliy-maslov/campus-cafe/internal/db"
	"github.com/vasiliy-maslov/campus-cafe/internal/student"
)

var testDB *pgxpool.Pool

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestMain(m *testing.M) {
	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		os.Exit(m.Run())
	}

	cfg := config.PostgresConfig{
		Host:     host,
		Port:     envOr("DB_PORT_TEST", "5432"),
		User:     envOr("DB_USER_TEST", "postgres"),
		Password: envOr("DB_PASSWORD_TEST", "postgres"),
		DBName:   envOr("DB_NAME_TEST", "campus_cafe_test"),
		SSLMode:  envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns: 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pg, err := db.New(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("db_host", host).Msg("Failed to connect to test database")
	}
	if err := pg.ApplyMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate test database")
	}
	testDB = pg.Pool

	code := m.Run()
	pg.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("DB_HOST_TEST not set")
	}
}

func newStudent(t *testing.T, ctx context.Context, repo student.Repository) *student.Student {
	t.Helper()
	code := "S" + uuid.Must(uuid.NewV4()).String()[:8]
	s := &student.Student{StudentID: code, Name: "Ada Lovelace", Department: "Mathematics", Year: 2}
	require.NoError(t, repo.Create(ctx, s))
	t.Cleanup(func() {
		_ = repo.Delete(context.Background(), s.ID)
	})
	return s
}

func TestPostgresRepository_StudentIDUnique(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := student.NewRepository(testDB)

	s := newStudent(t, ctx, repo)
	err := repo.Create(ctx, &student.Student{StudentID: s.StudentID, Name: "Someone Else"})
	assert.ErrorIs(t, err, student.ErrStudentIDExists)

	got, err := repo.GetByStudentID(ctx, s.StudentID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestPostgresRepository_SetBadgeKeyOnce(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := student.NewRepository(testDB)
	s := newStudent(t, ctx, repo)

	stored, err := repo.SetBadgeKey(ctx, s.ID, s.StudentID+"-first.png", false)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = repo.SetBadgeKey(ctx, s.ID, s.StudentID+"-second.png", false)
	require.NoError(t, err)
	assert.False(t, stored, "an existing badge key must not be replaced")

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BadgeKey)
	assert.Equal(t, s.StudentID+"-first.png", *got.BadgeKey)

	stored, err = repo.SetBadgeKey(ctx, s.ID, s.StudentID+"-forced.png", true)
	require.NoError(t, err)
	assert.True(t, stored)

	got.Name = "Ada King"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.StudentID+"-forced.png", *got.BadgeKey, "profile updates leave the badge alone")
}

func TestPostgresRepository_BadgeKeyUnique(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := student.NewRepository(testDB)
	a := newStudent(t, ctx, repo)
	b := newStudent(t, ctx, repo)

	key := "qr_code_" + a.StudentID + ".png"
	stored, err := repo.SetBadgeKey(ctx, a.ID, key, false)
	require.NoError(t, err)
	require.True(t, stored)

	_, err = repo.SetBadgeKey(ctx, b.ID, key, false)
	assert.ErrorIs(t, err, student.ErrBadgeKeyTaken)
	_, err = repo.SetBadgeKey(ctx, b.ID, key, true)
	assert.ErrorIs(t, err, student.ErrBadgeKeyTaken)

	// Clearing only applies while the row still holds the key.
	require.NoError(t, repo.ClearBadgeKey(ctx, b.ID, key))
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BadgeKey)

	require.NoError(t, repo.ClearBadgeKey(ctx, a.ID, key))
	got, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BadgeKey)

	stored, err = repo.SetBadgeKey(ctx, b.ID, key, false)
	require.NoError(t, err)
	assert.True(t, stored, "a released key can be claimed again")
}

func TestPostgresRepository_MealOncePerDay(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	repo := student.NewRepository(testDB)
	s := newStudent(t, ctx, repo)

	day := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	meal := &student.MealLog{StudentID: s.ID, MealType: student.Lunch, MealDate: day, LoggedAt: day.Add(12 * time.Hour)}
	require.NoError(t, repo.CreateMeal(ctx, meal))
	require.NotZero(t, meal.ID)

	err := repo.CreateMeal(ctx, &student.MealLog{StudentID: s.ID, MealType: student.Lunch, MealDate: day, LoggedAt: day.Add(12*time.Hour + time.Minute)})
	assert.ErrorIs(t, err, student.ErrDuplicateMeal)

	require.NoError(t, repo.CreateMeal(ctx, &student.MealLog{StudentID: s.ID, MealType: student.Dinner, MealDate: day, LoggedAt: day.Add(18 * time.Hour)}))

	got, err := repo.GetMeal(ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, s.StudentID, got.StudentCode)

	list, err := repo.ListMeals(ctx, student.MealFilter{StudentID: &s.ID, Date: &day})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	err = repo.CreateMeal(ctx, &student.MealLog{StudentID: uuid.Must(uuid.NewV4()), MealType: student.Lunch, MealDate: day, LoggedAt: day})
	assert.ErrorIs(t, err, student.ErrNotFound)
}

package student

import (
	"time"

	"github.com/gofrs/uuid"
)

type Student struct {
	ID         uuid.UUID `json:"id"`
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Department string    `json:"department"`
	Year       int       `json:"year"`
	PhotoKey   *string   `json:"photo_key"`
	BadgeKey   *string   `json:"badge_key"`
	BadgeURL   string    `json:"qr_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Student) HasBadge() bool {
	return s.BadgeKey != nil && *s.BadgeKey != ""
}

type Filter struct {
	Department string
	Year       int
	Search     string
}

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner:
		return true
	}
	return false
}

// mealWindow is a half-open [from, to) range of hours on the local clock.
type mealWindow struct {
	meal     MealType
	from, to int
}

var mealWindows = []mealWindow{
	{meal: Breakfast, from: 7, to: 9},
	{meal: Lunch, from: 11, to: 13},
	{meal: Dinner, from: 17, to: 20},
}

// MealTypeAt reports which meal is being served at t, if any.
func MealTypeAt(t time.Time) (MealType, bool) {
	h := t.Hour()
	for _, w := range mealWindows {
		if h >= w.from && h < w.to {
			return w.meal, true
		}
	}
	return "", false
}

// MealLog is append-only: it is never updated or deleted once written.
type MealLog struct {
	ID          int64     `json:"log_id"`
	StudentID   uuid.UUID `json:"student"`
	StudentName string    `json:"student_name"`
	StudentCode string    `json:"student_code"`
	MealType    MealType  `json:"meal_type"`
	MealDate    time.Time `json:"meal_date"`
	Description string    `json:"description"`
	LoggedAt    time.Time `json:"timestamp"`
}

type MealFilter struct {
	StudentID *uuid.UUID
	MealType  MealType
	Date      *time.Time
}

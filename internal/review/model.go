package review

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID           uuid.UUID `json:"id"`
	CustomerID   uuid.UUID `json:"customer"`
	MenuItemID   uuid.UUID `json:"menu_item"`
	MenuItemName string    `json:"menu_item_name"`
	OrderID      uuid.UUID `json:"order"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateInput struct {
	MenuItemID uuid.UUID
	OrderID    uuid.UUID
	Rating     int
	Comment    string
}

type Update struct {
	Rating  *int
	Comment *string
}

type Filter struct {
	CustomerID *uuid.UUID
	MenuItemID *uuid.UUID
	Rating     int
}

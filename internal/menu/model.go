package menu

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
	OutOfStock  Availability = "out_of_stock"
)

func (a Availability) String() string {
	return string(a)
}

func (a Availability) Valid() bool {
	switch a {
	case Available, Unavailable, OutOfStock:
		return true
	}
	return false
}

type Category struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Image          string    `json:"image"`
	IsActive       bool      `json:"is_active"`
	MenuItemsCount int       `json:"menu_items_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Item struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	CategoryID      uuid.UUID       `json:"category"`
	CategoryName    string          `json:"category_name"`
	Price           decimal.Decimal `json:"price"`
	Cost            decimal.Decimal `json:"cost"`
	Image           string          `json:"image"`
	Availability    Availability    `json:"availability"`
	PreparationTime int             `json:"preparation_time"`
	Calories        *int            `json:"calories"`
	Allergens       string          `json:"allergens"`
	IsFeatured      bool            `json:"is_featured"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// ProfitMargin is (price - cost) / price as a percentage, or zero when the
// cost is unknown.
func (i *Item) ProfitMargin() decimal.Decimal {
	if !i.Cost.IsPositive() || !i.Price.IsPositive() {
		return decimal.Zero
	}
	return i.Price.Sub(i.Cost).Div(i.Price).Mul(hundred).Round(2)
}

// Orderable reports whether the item may be added to an order.
func (i *Item) Orderable() bool {
	return i.IsActive && i.Availability == Available
}

type ItemFilter struct {
	CategoryID   *uuid.UUID
	Availability Availability
	Featured     *bool
	Search       string
	// OrderableOnly restricts results to active, available items.
	OrderableOnly bool
}

package inventory

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultMinimumStock = 10
	DefaultUnit         = "pieces"
)

type Item struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	CurrentStock  int             `json:"current_stock"`
	MinimumStock  int             `json:"minimum_stock"`
	Unit          string          `json:"unit"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	Supplier      string          `json:"supplier"`
	LastRestocked *time.Time      `json:"last_restocked"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (i *Item) IsLowStock() bool {
	return i.CurrentStock <= i.MinimumStock
}

// StockValue is current_stock × cost_per_unit.
func (i *Item) StockValue() decimal.Decimal {
	return i.CostPerUnit.Mul(decimal.NewFromInt(int64(i.CurrentStock))).Round(2)
}

type Filter struct {
	LowStockOnly bool
	ActiveOnly   bool
	Search       string
}

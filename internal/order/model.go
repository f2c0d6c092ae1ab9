package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/campus-cafe/internal/pricing"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCash           PaymentMethod = "cash"
	MethodCard           PaymentMethod = "card"
	MethodDigital        PaymentMethod = "digital"
	MethodUniversityCard PaymentMethod = "university_card"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodDigital, MethodUniversityCard:
		return true
	}
	return false
}

// Line is one menu item on an order. UnitPrice is the menu price captured
// when the line was created.
type Line struct {
	ID                  uuid.UUID       `json:"id"`
	OrderID             uuid.UUID       `json:"order"`
	MenuItemID          uuid.UUID       `json:"menu_item"`
	MenuItemName        string          `json:"menu_item_name"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	SpecialInstructions string          `json:"special_instructions"`
	CreatedAt           time.Time       `json:"created_at"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customer"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Notes         string          `json:"notes"`
	Lines         []Line          `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
}

// Recalculate derives subtotal, tax and total from the current lines. It is
// called on every write of the order row.
func (o *Order) Recalculate() {
	lines := make([]pricing.Line, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	totals := pricing.ComputeTotals(lines)
	o.Subtotal = totals.Subtotal
	o.TaxAmount = totals.Tax
	o.TotalAmount = totals.Total
}

// Editable reports whether lines may still be added, changed or removed.
func (o *Order) Editable() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

func (o *Order) lineIndex(lineID uuid.UUID) int {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func (o *Order) hasMenuItem(menuItemID uuid.UUID) bool {
	for i := range o.Lines {
		if o.Lines[i].MenuItemID == menuItemID {
			return true
		}
	}
	return false
}

type LineInput struct {
	MenuItemID          uuid.UUID
	Quantity            int
	SpecialInstructions string
}

type CreateInput struct {
	PaymentMethod PaymentMethod
	Notes         string
	Items         []LineInput
}

type LineUpdate struct {
	Quantity            int
	SpecialInstructions string
}

type Filter struct {
	CustomerID *uuid.UUID
	Status     Status
}

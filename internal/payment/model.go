package payment

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/campus-cafe/internal/order"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

type Payment struct {
	ID              uuid.UUID           `json:"id"`
	OrderID         uuid.UUID           `json:"order"`
	CustomerID      uuid.UUID           `json:"customer"`
	Amount          decimal.Decimal     `json:"amount"`
	PaymentMethod   order.PaymentMethod `json:"payment_method"`
	Status          Status              `json:"status"`
	TransactionID   string              `json:"transaction_id"`
	GatewayResponse json.RawMessage     `json:"gateway_response"`
	CreatedAt       time.Time           `json:"created_at"`
	CompletedAt     *time.Time          `json:"completed_at"`
}

type Filter struct {
	CustomerID *uuid.UUID
	Status     Status
}

package reservation

import (
	"time"

	"github.com/gofrs/uuid"
)

type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableMaintenance:
		return true
	}
	return false
}

type Table struct {
	ID       uuid.UUID   `json:"id"`
	Number   string      `json:"number"`
	Capacity int         `json:"capacity"`
	Status   TableStatus `json:"status"`
	Location string      `json:"location"`
	IsActive bool        `json:"is_active"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Active reservations hold their table slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation times are cafe-local wall-clock times.
type Reservation struct {
	ID              uuid.UUID `json:"id"`
	CustomerID      uuid.UUID `json:"customer"`
	TableID         uuid.UUID `json:"table"`
	TableNumber     string    `json:"table_number"`
	StartsAt        time.Time `json:"starts_at"`
	Duration        int       `json:"duration"`
	PartySize       int       `json:"party_size"`
	Status          Status    `json:"status"`
	SpecialRequests string    `json:"special_requests"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r *Reservation) EndsAt() time.Time {
	return r.StartsAt.Add(time.Duration(r.Duration) * time.Minute)
}

type Filter struct {
	CustomerID *uuid.UUID
	TableID    *uuid.UUID
	Status     Status
	Date       *time.Time
}

type Update struct {
	StartsAt        *time.Time
	Duration        *int
	PartySize       *int
	Status          *Status
	SpecialRequests *string
}

package notification

import (
	"time"

	"github.com/gofrs/uuid"
)

type Type string

const (
	TypeOrder     Type = "order"
	TypePayment   Type = "payment"
	TypeInventory Type = "inventory"
	TypeSystem    Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeOrder, TypePayment, TypeInventory, TypeSystem:
		return true
	}
	return false
}

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user"`
	Type      Type      `json:"notification_type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is what producers hand to a Publisher and what travels over the
// broker.
type Event struct {
	UserID  uuid.UUID `json:"user_id"`
	Type    Type      `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

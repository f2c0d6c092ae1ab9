package schedule

import (
	"github.com/gofrs/uuid"
)

type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

func (d Day) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// ClockLayout is the wire and storage format of shift times.
const ClockLayout = "15:04"

type Schedule struct {
	ID        uuid.UUID `json:"id"`
	StaffID   uuid.UUID `json:"staff"`
	StaffName string    `json:"staff_name"`
	Day       Day       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
}

type Filter struct {
	StaffID *uuid.UUID
	Day     Day
}

package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

// SlotDefinition is a doctor-declared availability window on one date.
type SlotDefinition struct {
	ID           uuid.UUID
	DoctorID     int64
	Date         string // YYYY-MM-DD
	StartTime    string // HH:MM
	EndTime      string // HH:MM
	SlotDuration int    // minutes
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (d SlotDefinition) Range() schedule.Range {
	return schedule.Range{Start: d.StartTime, End: d.EndTime}
}

func (d SlotDefinition) Window() schedule.Window {
	return schedule.Window{Start: d.StartTime, End: d.EndTime, Duration: d.SlotDuration}
}

// Appointment is a confirmed booking of one discrete slot.
type Appointment struct {
	ID          uuid.UUID
	DoctorID    int64
	Date        string
	Time        string
	PatientName string
	CreatedAt   time.Time
}

// SlotStatus is a candidate slot annotated with whether it is taken.
type SlotStatus struct {
	Time     string
	IsBooked bool
}

type EventLog struct {
	ID        int64
	EventType string
	EntityID  *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// SlotDefinitionFilter narrows a slot definition listing. Zero fields are ignored.
type SlotDefinitionFilter struct {
	DoctorID  int64
	Date      string
	ExcludeID uuid.UUID
}

// AppointmentFilter narrows an appointment listing. Zero fields are ignored.
type AppointmentFilter struct {
	DoctorID int64
	Date     string
}

func windows(defs []SlotDefinition) []schedule.Window {
	out := make([]schedule.Window, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Window())
	}
	return out
}

func ranges(defs []SlotDefinition) []schedule.Range {
	out := make([]schedule.Range, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Range())
	}
	return out
}

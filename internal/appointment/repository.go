package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSlotDefinitionNotFound = errors.New("slot definition not found")
	ErrAppointmentNotFound    = errors.New("appointment not found")
	ErrDuplicateAppointment   = errors.New("appointment already exists for doctor, date and time")
)

// SlotDefinitionStore persists doctor availability windows.
type SlotDefinitionStore interface {
	// Ordered by date then start time.
	ListSlotDefinitions(ctx context.Context, f SlotDefinitionFilter) ([]SlotDefinition, error)
	GetSlotDefinitionByID(ctx context.Context, id uuid.UUID) (*SlotDefinition, error)
	CreateSlotDefinition(ctx context.Context, def SlotDefinition) (*SlotDefinition, error)
	UpdateSlotDefinition(ctx context.Context, id uuid.UUID, startTime, endTime string, slotDuration int) (*SlotDefinition, error)
	DeleteSlotDefinition(ctx context.Context, id uuid.UUID) error
	ListDoctorIDs(ctx context.Context) ([]int64, error)
}

// AppointmentStore is the booking ledger. CreateAppointment must enforce
// uniqueness of (doctor, date, time) itself and report a violation as
// ErrDuplicateAppointment.
type AppointmentStore interface {
	// Ordered by date then time.
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentBySlot(ctx context.Context, doctorID int64, date, time string) (*Appointment, error)
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	SlotDefinitionStore
	AppointmentStore

	InsertEvent(ctx context.Context, ev EventLog) error
	Ping(ctx context.Context) error
}

package appointment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

const (
	EventSlotCreated         = "SLOT_CREATED"
	EventSlotUpdated         = "SLOT_UPDATED"
	EventSlotDeleted         = "SLOT_DELETED"
	EventAppointmentBooked   = "APPOINTMENT_BOOKED"
	EventAppointmentCanceled = "APPOINTMENT_CANCELLED"
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	validate *validator.Validate
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now for the "in the past" checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone that dates and HH:MM times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService wires the booking rules to a repository. A nil locker disables
// distributed locking.
func NewService(repo Repository, locker redisclient.Locker, opts ...Option) *Service {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}

	s := &Service{
		repo:     repo,
		locker:   locker,
		validate: newValidator(),
		loc:      time.Local,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the zone dates and times are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Today is the current calendar date in the service location.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(schedule.DateLayout)
}

func (s *Service) logEvent(ctx context.Context, entityID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	id := entityID

	ev := EventLog{
		EventType: eventType,
		EntityID:  &id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Str("entity_id", entityID.String()).Msg("failed to insert event log")
	}
}

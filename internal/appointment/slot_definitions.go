package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/doctor-slot-booking/internal/metrics"
	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

// CreateSlot declares a new availability window for a doctor.
func (s *Service) CreateSlot(ctx context.Context, req CreateSlotRequest) (*SlotDefinition, error) {
	def, err := s.createSlot(ctx, req)
	metrics.RecordSlotDefinitionOp("create", outcome(err))
	return def, err
}

func (s *Service) createSlot(ctx context.Context, req CreateSlotRequest) (*SlotDefinition, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	start, err := schedule.At(req.Date, req.StartTime, s.loc)
	if err != nil {
		return nil, validationError("Invalid date or start time", "")
	}
	if !start.After(s.now()) {
		return nil, validationError("Slot must be in the future (today with future time is allowed)", "")
	}

	if req.EndTime <= req.StartTime {
		return nil, validationError("End time must be after start time", "")
	}

	var created *SlotDefinition

	key := redisclient.DoctorDayLockKey(req.DoctorID, req.Date)
	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		existing, err := s.repo.ListSlotDefinitions(lockCtx, SlotDefinitionFilter{DoctorID: req.DoctorID, Date: req.Date})
		if err != nil {
			return unexpectedError("load slot definitions", err)
		}

		candidate := schedule.Range{Start: req.StartTime, End: req.EndTime}
		if schedule.OverlapsAny(candidate, ranges(existing)) {
			return conflictError("Slot overlaps with an existing slot", "Selected slot conflicts with an already scheduled slot.")
		}

		def, err := s.repo.CreateSlotDefinition(lockCtx, SlotDefinition{
			DoctorID:     req.DoctorID,
			Date:         req.Date,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			SlotDuration: req.SlotDuration,
		})
		if err != nil {
			return unexpectedError("create slot definition", err)
		}

		created = def

		s.logEvent(lockCtx, def.ID, EventSlotCreated, map[string]any{
			"doctor_id":     def.DoctorID,
			"date":          def.Date,
			"start_time":    def.StartTime,
			"end_time":      def.EndTime,
			"slot_duration": def.SlotDuration,
		})
		return nil
	})
	if err != nil {
		return nil, lockedOpError(err, "create slot definition")
	}

	return created, nil
}

// UpdateSlot replaces the window and duration of a definition. Appointments
// inside either the current or the requested window block the update, using
// the same half-open bounds as slot generation.
func (s *Service) UpdateSlot(ctx context.Context, id uuid.UUID, req UpdateSlotRequest) (*SlotDefinition, error) {
	def, err := s.updateSlot(ctx, id, req)
	metrics.RecordSlotDefinitionOp("update", outcome(err))
	return def, err
}

func (s *Service) updateSlot(ctx context.Context, id uuid.UUID, req UpdateSlotRequest) (*SlotDefinition, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	if req.EndTime <= req.StartTime {
		return nil, validationError("End time must be after start time", "")
	}

	current, err := s.repo.GetSlotDefinitionByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSlotDefinitionNotFound) {
			return nil, notFoundError("Slot not found")
		}
		return nil, unexpectedError("load slot definition", err)
	}

	var updated *SlotDefinition

	key := redisclient.DoctorDayLockKey(current.DoctorID, current.Date)
	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		others, err := s.repo.ListSlotDefinitions(lockCtx, SlotDefinitionFilter{
			DoctorID:  current.DoctorID,
			Date:      current.Date,
			ExcludeID: current.ID,
		})
		if err != nil {
			return unexpectedError("load slot definitions", err)
		}

		next := schedule.Range{Start: req.StartTime, End: req.EndTime}
		if schedule.OverlapsAny(next, ranges(others)) {
			return conflictError("Slot overlaps with an existing slot", "The new time range conflicts with another slot for the doctor.")
		}

		appts, err := s.repo.ListAppointments(lockCtx, AppointmentFilter{DoctorID: current.DoctorID, Date: current.Date})
		if err != nil {
			return unexpectedError("load appointments", err)
		}
		for _, a := range appts {
			if current.Range().Contains(a.Time) || next.Contains(a.Time) {
				return validationError("Cannot update slot with existing bookings", "Cancel the appointments at "+a.Time+" and any others in this range first.")
			}
		}

		def, err := s.repo.UpdateSlotDefinition(lockCtx, current.ID, req.StartTime, req.EndTime, req.SlotDuration)
		if err != nil {
			if errors.Is(err, ErrSlotDefinitionNotFound) {
				return notFoundError("Slot not found")
			}
			return unexpectedError("update slot definition", err)
		}

		updated = def

		s.logEvent(lockCtx, def.ID, EventSlotUpdated, map[string]any{
			"from":          []string{current.StartTime, current.EndTime},
			"to":            []string{def.StartTime, def.EndTime},
			"slot_duration": def.SlotDuration,
		})
		return nil
	})
	if err != nil {
		return nil, lockedOpError(err, "update slot definition")
	}

	return updated, nil
}

// DeleteSlot removes a definition that has no appointments in [start, end).
func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	err := s.deleteSlot(ctx, id)
	metrics.RecordSlotDefinitionOp("delete", outcome(err))
	return err
}

func (s *Service) deleteSlot(ctx context.Context, id uuid.UUID) error {
	def, err := s.repo.GetSlotDefinitionByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSlotDefinitionNotFound) {
			return notFoundError("Slot not found")
		}
		return unexpectedError("load slot definition", err)
	}

	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{DoctorID: def.DoctorID, Date: def.Date})
	if err != nil {
		return unexpectedError("load appointments", err)
	}
	for _, a := range appts {
		if def.Range().Contains(a.Time) {
			return validationError(
				"Cannot delete slot with existing bookings in its time range",
				"Please cancel the existing appointments before deleting this slot.",
			)
		}
	}

	if err := s.repo.DeleteSlotDefinition(ctx, def.ID); err != nil {
		if errors.Is(err, ErrSlotDefinitionNotFound) {
			return notFoundError("Slot not found")
		}
		return unexpectedError("delete slot definition", err)
	}

	s.logEvent(ctx, def.ID, EventSlotDeleted, map[string]any{
		"doctor_id":  def.DoctorID,
		"date":       def.Date,
		"start_time": def.StartTime,
		"end_time":   def.EndTime,
	})
	return nil
}

// ListDoctorSlots returns a doctor's definitions ordered by date and start
// time, optionally restricted to one date.
func (s *Service) ListDoctorSlots(ctx context.Context, doctorID int64, date string) ([]SlotDefinition, error) {
	if doctorID <= 0 {
		return nil, validationError("Doctor ID is required", "")
	}
	if date != "" && !schedule.ValidDate(date) {
		return nil, validationError("Date must be in YYYY-MM-DD format", "")
	}

	defs, err := s.repo.ListSlotDefinitions(ctx, SlotDefinitionFilter{DoctorID: doctorID, Date: date})
	if err != nil {
		return nil, unexpectedError("list slot definitions", err)
	}
	return defs, nil
}

// ListDoctors returns the distinct doctor ids that have any definition.
func (s *Service) ListDoctors(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ListDoctorIDs(ctx)
	if err != nil {
		return nil, unexpectedError("list doctors", err)
	}
	return ids, nil
}

func lockedOpError(err error, op string) error {
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return conflictError("Slots for this doctor and date are being changed", "Please retry shortly")
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return unexpectedError(op, err)
}

package appointment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/doctor-slot-booking/internal/metrics"
	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

// Book reserves req.Time with req.DoctorID on req.Date for a patient.
//
// The pre-checks give callers a precise reason for a rejection; the ledger's
// unique constraint decides concurrent races, and losing one is reported as
// the same conflict an earlier check would have produced.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	appt, err := s.book(ctx, req)
	metrics.RecordBooking(outcome(err))
	return appt, err
}

func (s *Service) book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	req.PatientName = strings.TrimSpace(req.PatientName)
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	defs, err := s.repo.ListSlotDefinitions(ctx, SlotDefinitionFilter{DoctorID: req.DoctorID, Date: req.Date})
	if err != nil {
		return nil, unexpectedError("load slot definitions", err)
	}
	if len(defs) == 0 {
		return nil, validationError("No slots available for this doctor on this date", "")
	}

	if !schedule.Contains(windows(defs), req.Time) {
		return nil, validationError("Invalid time slot", "")
	}

	at, err := schedule.At(req.Date, req.Time, s.loc)
	if err != nil {
		return nil, validationError("Invalid time slot", "")
	}
	if at.Before(s.now()) {
		return nil, validationError("Cannot book in the past", "")
	}

	var created *Appointment

	key := redisclient.BookingLockKey(req.DoctorID, req.Date, req.Time)
	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		existing, err := s.repo.GetAppointmentBySlot(lockCtx, req.DoctorID, req.Date, req.Time)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return unexpectedError("check existing appointment", err)
		}
		if existing != nil {
			return slotTakenError()
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			DoctorID:    req.DoctorID,
			Date:        req.Date,
			Time:        req.Time,
			PatientName: req.PatientName,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateAppointment) {
				return slotTakenError()
			}
			return unexpectedError("create appointment", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"doctor_id": appt.DoctorID,
			"date":      appt.Date,
			"time":      appt.Time,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, conflictError("Slot is currently being booked", "Please retry shortly")
		}
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, unexpectedError("book appointment", err)
	}

	return created, nil
}

func slotTakenError() *Error {
	return conflictError("Slot already booked", "Please choose another available time")
}

// Cancel deletes a booking. There is no soft delete.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return notFoundError("Booking not found")
		}
		return unexpectedError("load appointment", err)
	}

	if err := s.repo.DeleteAppointment(ctx, appt.ID); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return notFoundError("Booking not found")
		}
		return unexpectedError("delete appointment", err)
	}

	metrics.CancellationsTotal.Inc()
	s.logEvent(ctx, appt.ID, EventAppointmentCanceled, map[string]any{
		"doctor_id": appt.DoctorID,
		"date":      appt.Date,
		"time":      appt.Time,
	})

	return nil
}

// BookingFilter narrows ListBookings. Zero fields are ignored.
type BookingFilter struct {
	DoctorID int64
	Date     string
}

// ListBookings returns appointments ordered by date and time.
func (s *Service) ListBookings(ctx context.Context, f BookingFilter) ([]Appointment, error) {
	if f.Date != "" && !schedule.ValidDate(f.Date) {
		return nil, validationError("Date must be in YYYY-MM-DD format", "")
	}
	if f.DoctorID < 0 {
		return nil, validationError("Doctor ID must be a positive integer", "")
	}

	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{DoctorID: f.DoctorID, Date: f.Date})
	if err != nil {
		return nil, unexpectedError("list appointments", err)
	}
	return appts, nil
}

package appointment

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/hackgods/doctor-slot-booking/internal/metrics"
	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

// loadDay fetches a doctor's definitions and booked times for one date concurrently.
func (s *Service) loadDay(ctx context.Context, doctorID int64, date string) ([]SlotDefinition, map[string]struct{}, error) {
	var defs []SlotDefinition
	var appts []Appointment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		defs, err = s.repo.ListSlotDefinitions(gctx, SlotDefinitionFilter{DoctorID: doctorID, Date: date})
		return err
	})
	g.Go(func() error {
		var err error
		appts, err = s.repo.ListAppointments(gctx, AppointmentFilter{DoctorID: doctorID, Date: date})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, unexpectedError("load doctor day", err)
	}

	booked := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		booked[a.Time] = struct{}{}
	}
	return defs, booked, nil
}

// FreeSlots returns the unbooked slot times of a doctor on date, ascending.
// A day without definitions yields an empty list.
func (s *Service) FreeSlots(ctx context.Context, doctorID int64, date string) ([]string, error) {
	if err := checkDoctorDay(doctorID, date); err != nil {
		return nil, err
	}

	defs, booked, err := s.loadDay(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	free := []string{}
	for _, t := range schedule.Candidates(windows(defs)) {
		if _, ok := booked[t]; !ok {
			free = append(free, t)
		}
	}
	return free, nil
}

// AllSlots returns every slot time of a doctor on date with its booked flag.
func (s *Service) AllSlots(ctx context.Context, doctorID int64, date string) ([]SlotStatus, error) {
	if err := checkDoctorDay(doctorID, date); err != nil {
		return nil, err
	}

	defs, booked, err := s.loadDay(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	candidates := schedule.Candidates(windows(defs))
	out := make([]SlotStatus, 0, len(candidates))
	for _, t := range candidates {
		_, taken := booked[t]
		out = append(out, SlotStatus{Time: t, IsBooked: taken})
	}
	return out, nil
}

// RefreshFreeSlotGauges publishes today's free slot count per doctor. The
// gauges are replaced only when every doctor was counted; on error the
// previous values stay in place.
func (s *Service) RefreshFreeSlotGauges(ctx context.Context) error {
	doctors, err := s.repo.ListDoctorIDs(ctx)
	if err != nil {
		return unexpectedError("list doctors", err)
	}

	today := s.Today()
	counts := make(map[string]float64, len(doctors))
	for _, id := range doctors {
		free, err := s.FreeSlots(ctx, id, today)
		if err != nil {
			return err
		}
		counts[strconv.FormatInt(id, 10)] = float64(len(free))
	}

	metrics.FreeSlots.Reset()
	for doctor, n := range counts {
		metrics.FreeSlots.WithLabelValues(doctor).Set(n)
	}
	return nil
}

package appointment

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hackgods/doctor-slot-booking/internal/metrics"
	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
)

// ---------- Helpers ----------

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestService(t *testing.T, repo Repository, locker redisclient.Locker) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)}
	svc := NewService(repo, locker, WithClock(clock.Now), WithLocation(time.UTC))
	return svc, clock
}

func mustCreateSlot(t *testing.T, svc *Service, req CreateSlotRequest) *SlotDefinition {
	t.Helper()
	def, err := svc.CreateSlot(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateSlot(%+v): %v", req, err)
	}
	return def
}

func mustBook(t *testing.T, svc *Service, req BookingRequest) *Appointment {
	t.Helper()
	appt, err := svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book(%+v): %v", req, err)
	}
	return appt
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func morning(doctorID int64, date string) CreateSlotRequest {
	return CreateSlotRequest{DoctorID: doctorID, Date: date, StartTime: "09:00", EndTime: "10:00", SlotDuration: 30}
}

// staleReadRepo hides existing appointments from the advisory pre-check so
// the insert has to rely on the unique constraint.
type staleReadRepo struct {
	Repository
}

func (staleReadRepo) GetAppointmentBySlot(context.Context, int64, string, string) (*Appointment, error) {
	return nil, ErrAppointmentNotFound
}

type busyLocker struct{}

func (busyLocker) WithLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// ---------- Availability ----------

func TestFreeSlots_ExcludesBookedTimes(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	ctx := context.Background()

	mustCreateSlot(t, svc, morning(1, "2099-01-01"))
	mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:00", PatientName: "Jane Doe"})

	free, err := svc.FreeSlots(ctx, 1, "2099-01-01")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	if want := []string{"09:30"}; !reflect.DeepEqual(free, want) {
		t.Errorf("FreeSlots = %v, want %v", free, want)
	}
}

func TestFreeSlots_UnionsAndSortsDefinitions(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	ctx := context.Background()

	mustCreateSlot(t, svc, CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "14:00", EndTime: "15:00", SlotDuration: 60})
	mustCreateSlot(t, svc, CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "10:00", EndTime: "11:00", SlotDuration: 30})
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))
	// another doctor and another date must not leak in
	mustCreateSlot(t, svc, morning(2, "2099-01-01"))
	mustCreateSlot(t, svc, morning(1, "2099-01-02"))

	free, err := svc.FreeSlots(ctx, 1, "2099-01-01")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	want := []string{"09:00", "09:30", "10:00", "10:30", "14:00"}
	if !reflect.DeepEqual(free, want) {
		t.Errorf("FreeSlots = %v, want %v", free, want)
	}
}

func TestFreeSlots_NoDefinitionsIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)

	free, err := svc.FreeSlots(context.Background(), 9, "2099-01-01")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	if free == nil || len(free) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", free)
	}
}

func TestFreeSlots_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	ctx := context.Background()

	_, err := svc.FreeSlots(ctx, 1, "")
	assertKind(t, err, KindValidation)

	_, err = svc.FreeSlots(ctx, 1, "01-01-2099")
	assertKind(t, err, KindValidation)

	_, err = svc.AllSlots(ctx, 0, "2099-01-01")
	assertKind(t, err, KindValidation)
}

func TestAllSlots_MarksBooked(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	ctx := context.Background()

	mustCreateSlot(t, svc, morning(1, "2099-01-01"))
	mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:30", PatientName: "Jane Doe"})

	got, err := svc.AllSlots(ctx, 1, "2099-01-01")
	if err != nil {
		t.Fatalf("AllSlots: %v", err)
	}
	want := []SlotStatus{{Time: "09:00", IsBooked: false}, {Time: "09:30", IsBooked: true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllSlots = %+v, want %+v", got, want)
	}

	empty, err := svc.AllSlots(ctx, 1, "2099-02-02")
	if err != nil {
		t.Fatalf("AllSlots: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no slots, got %+v", empty)
	}
}

// ---------- Booking ----------

func TestBook_Success(t *testing.T) {
	repo := newTestRepo(t)
	svc, _ := newTestService(t, repo, nil)

	mustCreateSlot(t, svc, morning(1, "2099-01-01"))
	appt := mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:30", PatientName: "  Jane Doe "})

	if appt.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if appt.PatientName != "Jane Doe" {
		t.Errorf("patient name not trimmed: %q", appt.PatientName)
	}

	events, err := repo.ListEvents(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].EventType != EventAppointmentBooked {
		t.Errorf("expected %s event, got %+v", EventAppointmentBooked, events)
	}
}

func TestBook_Rejections(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))

	valid := BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:00", PatientName: "Jane Doe"}

	tests := []struct {
		name    string
		mutate  func(r *BookingRequest)
		message string
	}{
		{"missing doctor", func(r *BookingRequest) { r.DoctorID = 0 }, "All fields are required"},
		{"missing date", func(r *BookingRequest) { r.Date = "" }, "All fields are required"},
		{"missing time", func(r *BookingRequest) { r.Time = "" }, "All fields are required"},
		{"missing name", func(r *BookingRequest) { r.PatientName = "   " }, "All fields are required"},
		{"digits in name", func(r *BookingRequest) { r.PatientName = "J4ne" }, "Patient name must contain only letters and spaces"},
		{"punctuation in name", func(r *BookingRequest) { r.PatientName = "O'Brien" }, "Patient name must contain only letters and spaces"},
		{"name too short", func(r *BookingRequest) { r.PatientName = "J" }, "Patient name must be between 2 and 50 characters"},
		{"name too long", func(r *BookingRequest) { r.PatientName = strings.Repeat("a", 51) }, "Patient name must be between 2 and 50 characters"},
		{"negative doctor", func(r *BookingRequest) { r.DoctorID = -3 }, "Doctor ID must be a positive integer"},
		{"bad date", func(r *BookingRequest) { r.Date = "2099/01/01" }, "Date must be in YYYY-MM-DD format"},
		{"no definitions", func(r *BookingRequest) { r.Date = "2099-01-02" }, "No slots available for this doctor on this date"},
		{"misaligned time", func(r *BookingRequest) { r.Time = "09:15" }, "Invalid time slot"},
		{"outside range", func(r *BookingRequest) { r.Time = "10:00" }, "Invalid time slot"},
		{"malformed time", func(r *BookingRequest) { r.Time = "9:00" }, "Invalid time slot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			_, err := svc.Book(context.Background(), req)
			assertKind(t, err, KindValidation)

			var e *Error
			if !errors.As(err, &e) || e.Message != tt.message {
				t.Errorf("message = %q, want %q", e.Message, tt.message)
			}
		})
	}
}

func TestBook_RejectsPast(t *testing.T) {
	svc, clock := newTestService(t, newTestRepo(t), nil)
	mustCreateSlot(t, svc, morning(1, "2030-06-01"))

	clock.Set(time.Date(2030, 6, 1, 9, 20, 0, 0, time.UTC))

	_, err := svc.Book(context.Background(), BookingRequest{DoctorID: 1, Date: "2030-06-01", Time: "09:00", PatientName: "Jane Doe"})
	assertKind(t, err, KindValidation)

	// later slot on the same day is still bookable
	mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2030-06-01", Time: "09:30", PatientName: "Jane Doe"})
}

func TestBook_DoubleBookingIsConflict(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))

	req := BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:00", PatientName: "Jane Doe"}
	mustBook(t, svc, req)

	req.PatientName = "John Roe"
	_, err := svc.Book(context.Background(), req)
	assertKind(t, err, KindConflict)
}

func TestBook_UniqueConstraintIsConflict(t *testing.T) {
	repo := newTestRepo(t)
	svc, _ := newTestService(t, staleReadRepo{Repository: repo}, nil)
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))

	req := BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:00", PatientName: "Jane Doe"}
	mustBook(t, svc, req)

	_, err := svc.Book(context.Background(), req)
	assertKind(t, err, KindConflict)

	var e *Error
	if errors.As(err, &e) && e.Message != "Slot already booked" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestBook_ConcurrentRequestsBookOnce(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))

	const attempts = 12
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:30", PatientName: "Jane Doe"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		assertKind(t, err, KindConflict)
	}
	if success != 1 {
		t.Fatalf("expected exactly one successful booking, got %d", success)
	}
}

func TestBook_LockHeldElsewhereIsConflict(t *testing.T) {
	repo := newTestRepo(t)
	plain, _ := newTestService(t, repo, nil)
	mustCreateSlot(t, plain, morning(1, "2099-01-01"))

	svc, _ := newTestService(t, repo, busyLocker{})
	_, err := svc.Book(context.Background(), BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:00", PatientName: "Jane Doe"})
	assertKind(t, err, KindConflict)
}

func TestCancel(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	ctx := context.Background()
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))
	appt := mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:00", PatientName: "Jane Doe"})

	assertKind(t, svc.Cancel(ctx, uuid.New()), KindNotFound)

	if err := svc.Cancel(ctx, appt.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	assertKind(t, svc.Cancel(ctx, appt.ID), KindNotFound)

	free, err := svc.FreeSlots(ctx, 1, "2099-01-01")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	if want := []string{"09:00", "09:30"}; !reflect.DeepEqual(free, want) {
		t.Errorf("FreeSlots after cancel = %v, want %v", free, want)
	}
}

func TestListBookings(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	ctx := context.Background()

	mustCreateSlot(t, svc, morning(1, "2099-01-02"))
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))
	mustCreateSlot(t, svc, morning(2, "2099-01-01"))
	mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-02", Time: "09:00", PatientName: "Ann Lee"})
	mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:30", PatientName: "Bob Ray"})
	mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:00", PatientName: "Cid Moe"})
	mustBook(t, svc, BookingRequest{DoctorID: 2, Date: "2099-01-01", Time: "09:00", PatientName: "Dee Kay"})

	all, err := svc.ListBookings(ctx, BookingFilter{})
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	var order []string
	for _, a := range all {
		order = append(order, a.Date+" "+a.Time)
	}
	want := []string{"2099-01-01 09:00", "2099-01-01 09:00", "2099-01-01 09:30", "2099-01-02 09:00"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}

	byDay, err := svc.ListBookings(ctx, BookingFilter{DoctorID: 1, Date: "2099-01-01"})
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(byDay) != 2 || byDay[0].PatientName != "Cid Moe" || byDay[1].PatientName != "Bob Ray" {
		t.Errorf("unexpected filtered bookings: %+v", byDay)
	}

	_, err = svc.ListBookings(ctx, BookingFilter{Date: "tomorrow"})
	assertKind(t, err, KindValidation)
}

// ---------- Slot definitions ----------

func TestCreateSlot_Rejections(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))

	tests := []struct {
		name string
		req  CreateSlotRequest
		kind ErrorKind
	}{
		{"missing fields", CreateSlotRequest{DoctorID: 1, Date: "2099-01-01"}, KindValidation},
		{"bad duration", CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "11:00", EndTime: "12:00", SlotDuration: 20}, KindValidation},
		{"unpadded time", CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "9:00", EndTime: "12:00", SlotDuration: 15}, KindValidation},
		{"in the past", CreateSlotRequest{DoctorID: 1, Date: "2030-06-01", StartTime: "07:00", EndTime: "09:00", SlotDuration: 15}, KindValidation},
		{"starts now", CreateSlotRequest{DoctorID: 1, Date: "2030-06-01", StartTime: "08:00", EndTime: "09:00", SlotDuration: 15}, KindValidation},
		{"end before start", CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "12:00", EndTime: "11:00", SlotDuration: 15}, KindValidation},
		{"end equals start", CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "12:00", EndTime: "12:00", SlotDuration: 15}, KindValidation},
		{"identical range", morning(1, "2099-01-01"), KindConflict},
		{"partial overlap", CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "09:30", EndTime: "10:30", SlotDuration: 30}, KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSlot(context.Background(), tt.req)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestCreateSlot_AdjacentAndOtherDoctorsAllowed(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	mustCreateSlot(t, svc, morning(1, "2099-01-01"))

	mustCreateSlot(t, svc, CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "10:00", EndTime: "11:00", SlotDuration: 15})
	mustCreateSlot(t, svc, CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "08:00", EndTime: "09:00", SlotDuration: 45})
	mustCreateSlot(t, svc, morning(2, "2099-01-01"))
	mustCreateSlot(t, svc, morning(1, "2099-01-02"))
	// later today relative to the clock
	mustCreateSlot(t, svc, morning(1, "2030-06-01"))
}

func TestCreateSlot_LockHeldElsewhereIsConflict(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), busyLocker{})
	_, err := svc.CreateSlot(context.Background(), morning(1, "2099-01-01"))
	assertKind(t, err, KindConflict)
}

func TestUpdateSlot(t *testing.T) {
	repo := newTestRepo(t)
	svc, _ := newTestService(t, repo, nil)
	ctx := context.Background()

	def := mustCreateSlot(t, svc, morning(1, "2099-01-01"))
	mustCreateSlot(t, svc, CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "11:00", EndTime: "12:00", SlotDuration: 30})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.UpdateSlot(ctx, uuid.New(), UpdateSlotRequest{StartTime: "09:00", EndTime: "10:00", SlotDuration: 15})
		assertKind(t, err, KindNotFound)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.UpdateSlot(ctx, def.ID, UpdateSlotRequest{StartTime: "09:00"})
		assertKind(t, err, KindValidation)
	})

	t.Run("end not after start", func(t *testing.T) {
		_, err := svc.UpdateSlot(ctx, def.ID, UpdateSlotRequest{StartTime: "10:00", EndTime: "09:00", SlotDuration: 15})
		assertKind(t, err, KindValidation)
	})

	t.Run("overlaps other definition", func(t *testing.T) {
		_, err := svc.UpdateSlot(ctx, def.ID, UpdateSlotRequest{StartTime: "09:00", EndTime: "11:30", SlotDuration: 30})
		assertKind(t, err, KindConflict)
	})

	t.Run("own range is not a conflict", func(t *testing.T) {
		updated, err := svc.UpdateSlot(ctx, def.ID, UpdateSlotRequest{StartTime: "09:00", EndTime: "11:00", SlotDuration: 15})
		if err != nil {
			t.Fatalf("UpdateSlot: %v", err)
		}
		if updated.StartTime != "09:00" || updated.EndTime != "11:00" || updated.SlotDuration != 15 {
			t.Errorf("unexpected update result: %+v", updated)
		}
		if updated.DoctorID != 1 || updated.Date != "2099-01-01" {
			t.Errorf("doctor/date must not change: %+v", updated)
		}
	})

	t.Run("booking in current range blocks", func(t *testing.T) {
		appt := mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "10:45", PatientName: "Jane Doe"})
		defer svc.Cancel(ctx, appt.ID)

		_, err := svc.UpdateSlot(ctx, def.ID, UpdateSlotRequest{StartTime: "09:00", EndTime: "10:00", SlotDuration: 30})
		assertKind(t, err, KindValidation)
	})

	t.Run("booking in requested range blocks", func(t *testing.T) {
		orphan, err := repo.CreateAppointment(ctx, Appointment{DoctorID: 1, Date: "2099-01-01", Time: "08:30", PatientName: "Old Entry"})
		if err != nil {
			t.Fatalf("CreateAppointment: %v", err)
		}
		defer repo.DeleteAppointment(ctx, orphan.ID)

		_, err = svc.UpdateSlot(ctx, def.ID, UpdateSlotRequest{StartTime: "08:00", EndTime: "11:00", SlotDuration: 30})
		assertKind(t, err, KindValidation)
	})

	t.Run("booking at new end boundary does not block", func(t *testing.T) {
		other, err := repo.ListSlotDefinitions(ctx, SlotDefinitionFilter{DoctorID: 1, Date: "2099-01-01", ExcludeID: def.ID})
		if err != nil || len(other) != 1 {
			t.Fatalf("expected one other definition, got %v (%v)", other, err)
		}
		appt := mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "11:00", PatientName: "Jane Doe"})
		defer svc.Cancel(ctx, appt.ID)

		if _, err := svc.UpdateSlot(ctx, def.ID, UpdateSlotRequest{StartTime: "09:30", EndTime: "11:00", SlotDuration: 30}); err != nil {
			t.Fatalf("UpdateSlot: %v", err)
		}
	})
}

func TestDeleteSlot(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	ctx := context.Background()

	empty := mustCreateSlot(t, svc, CreateSlotRequest{DoctorID: 1, Date: "2099-01-01", StartTime: "13:00", EndTime: "14:00", SlotDuration: 60})
	busy := mustCreateSlot(t, svc, morning(1, "2099-01-01"))
	mustBook(t, svc, BookingRequest{DoctorID: 1, Date: "2099-01-01", Time: "09:00", PatientName: "Jane Doe"})

	assertKind(t, svc.DeleteSlot(ctx, uuid.New()), KindNotFound)
	assertKind(t, svc.DeleteSlot(ctx, busy.ID), KindValidation)

	if err := svc.DeleteSlot(ctx, empty.ID); err != nil {
		t.Fatalf("DeleteSlot: %v", err)
	}
	assertKind(t, svc.DeleteSlot(ctx, empty.ID), KindNotFound)

	defs, err := svc.ListDoctorSlots(ctx, 1, "2099-01-01")
	if err != nil {
		t.Fatalf("ListDoctorSlots: %v", err)
	}
	if len(defs) != 1 || defs[0].ID != busy.ID {
		t.Errorf("unexpected remaining definitions: %+v", defs)
	}
}

func TestListDoctorsAndSlots(t *testing.T) {
	svc, _ := newTestService(t, newTestRepo(t), nil)
	ctx := context.Background()

	mustCreateSlot(t, svc, morning(7, "2099-01-02"))
	mustCreateSlot(t, svc, morning(3, "2099-01-01"))
	mustCreateSlot(t, svc, morning(7, "2099-01-01"))
	mustCreateSlot(t, svc, CreateSlotRequest{DoctorID: 7, Date: "2099-01-01", StartTime: "07:00", EndTime: "08:00", SlotDuration: 15})

	doctors, err := svc.ListDoctors(ctx)
	if err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
	if want := []int64{3, 7}; !reflect.DeepEqual(doctors, want) {
		t.Errorf("ListDoctors = %v, want %v", doctors, want)
	}

	defs, err := svc.ListDoctorSlots(ctx, 7, "")
	if err != nil {
		t.Fatalf("ListDoctorSlots: %v", err)
	}
	var got []string
	for _, d := range defs {
		got = append(got, d.Date+" "+d.StartTime)
	}
	want := []string{"2099-01-01 07:00", "2099-01-01 09:00", "2099-01-02 09:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListDoctorSlots = %v, want %v", got, want)
	}

	_, err = svc.ListDoctorSlots(ctx, 0, "")
	assertKind(t, err, KindValidation)
}

// flakyAppointmentsRepo fails appointment listing while down is set.
type flakyAppointmentsRepo struct {
	Repository
	down *bool
}

func (r flakyAppointmentsRepo) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	if *r.down {
		return nil, errors.New("database unavailable")
	}
	return r.Repository.ListAppointments(ctx, f)
}

func TestRefreshFreeSlotGauges(t *testing.T) {
	down := false
	svc, _ := newTestService(t, flakyAppointmentsRepo{Repository: newTestRepo(t), down: &down}, nil)
	mustCreateSlot(t, svc, morning(901, "2030-06-01"))
	mustBook(t, svc, BookingRequest{DoctorID: 901, Date: "2030-06-01", Time: "09:00", PatientName: "Ada Lovelace"})

	if err := svc.RefreshFreeSlotGauges(context.Background()); err != nil {
		t.Fatalf("RefreshFreeSlotGauges: %v", err)
	}
	gauge := metrics.FreeSlots.WithLabelValues("901")
	if got := testutil.ToFloat64(gauge); got != 1 {
		t.Fatalf("free slots = %v, want 1", got)
	}

	down = true
	err := svc.RefreshFreeSlotGauges(context.Background())
	assertKind(t, err, KindUnexpected)
	if got := testutil.ToFloat64(metrics.FreeSlots.WithLabelValues("901")); got != 1 {
		t.Errorf("free slots after failed refresh = %v, want 1 retained", got)
	}
}

package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const slotDefinitionColumns = `id, doctor_id, slot_date, start_time, end_time, slot_duration, created_at, updated_at`

const appointmentColumns = `id, doctor_id, slot_date, slot_time, patient_name, created_at`

func scanSlotDefinition(row pgx.Row) (*SlotDefinition, error) {
	var d SlotDefinition
	var date time.Time

	err := row.Scan(
		&d.ID,
		&d.DoctorID,
		&date,
		&d.StartTime,
		&d.EndTime,
		&d.SlotDuration,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotDefinitionNotFound
		}
		return nil, err
	}

	d.Date = date.Format(schedule.DateLayout)
	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&date,
		&a.Time,
		&a.PatientName,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = date.Format(schedule.DateLayout)
	return &a, nil
}

func pgDate(s string) (time.Time, error) {
	d, err := time.Parse(schedule.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// whereClause accumulates numbered predicates for dynamic filters.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// Slot definitions

func (r *PgRepository) ListSlotDefinitions(ctx context.Context, f SlotDefinitionFilter) ([]SlotDefinition, error) {
	var where whereClause
	if f.DoctorID != 0 {
		where.add("doctor_id = $%d", f.DoctorID)
	}
	if f.Date != "" {
		d, err := pgDate(f.Date)
		if err != nil {
			return nil, err
		}
		where.add("slot_date = $%d", d)
	}
	if f.ExcludeID != uuid.Nil {
		where.add("id <> $%d", f.ExcludeID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+slotDefinitionColumns+`
		FROM slot_definitions
		`+where.String()+`
		ORDER BY slot_date, start_time
	`, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []SlotDefinition{}
	for rows.Next() {
		d, err := scanSlotDefinition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetSlotDefinitionByID(ctx context.Context, id uuid.UUID) (*SlotDefinition, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotDefinitionColumns+`
		FROM slot_definitions
		WHERE id = $1
	`, id)
	return scanSlotDefinition(row)
}

func (r *PgRepository) CreateSlotDefinition(ctx context.Context, def SlotDefinition) (*SlotDefinition, error) {
	date, err := pgDate(def.Date)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO slot_definitions (id, doctor_id, slot_date, start_time, end_time, slot_duration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+slotDefinitionColumns,
		uuid.New(), def.DoctorID, date, def.StartTime, def.EndTime, def.SlotDuration)

	return scanSlotDefinition(row)
}

func (r *PgRepository) UpdateSlotDefinition(ctx context.Context, id uuid.UUID, startTime, endTime string, slotDuration int) (*SlotDefinition, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE slot_definitions
		SET start_time = $2,
		    end_time = $3,
		    slot_duration = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+slotDefinitionColumns,
		id, startTime, endTime, slotDuration)

	return scanSlotDefinition(row)
}

func (r *PgRepository) DeleteSlotDefinition(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM slot_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotDefinitionNotFound
	}
	return nil
}

func (r *PgRepository) ListDoctorIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT doctor_id
		FROM slot_definitions
		ORDER BY doctor_id
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// Appointments

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	var where whereClause
	if f.DoctorID != 0 {
		where.add("doctor_id = $%d", f.DoctorID)
	}
	if f.Date != "" {
		d, err := pgDate(f.Date)
		if err != nil {
			return nil, err
		}
		where.add("slot_date = $%d", d)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		`+where.String()+`
		ORDER BY slot_date, slot_time
	`, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentBySlot(ctx context.Context, doctorID int64, date, slotTime string) (*Appointment, error) {
	d, err := pgDate(date)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
	`, doctorID, d, slotTime)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	date, err := pgDate(a.Date)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, slot_date, slot_time, patient_name, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+appointmentColumns,
		uuid.New(), a.DoctorID, date, a.Time, a.PatientName)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAppointment
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, entity_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.EntityID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func (r *PgRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

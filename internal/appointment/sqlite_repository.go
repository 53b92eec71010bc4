package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository implements Repository on an embedded SQLite database.
// It carries the same UNIQUE(doctor_id, slot_date, slot_time) guard as the
// Postgres schema.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serialises writers; one connection also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migration: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) migrate() error {
	if _, err := r.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS slot_definitions (
			id TEXT PRIMARY KEY,
			doctor_id INTEGER NOT NULL CHECK (doctor_id > 0),
			slot_date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			slot_duration INTEGER NOT NULL CHECK (slot_duration IN (15, 30, 45, 60)),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			CHECK (start_time < end_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slot_definitions_doctor_date ON slot_definitions(doctor_id, slot_date)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			doctor_id INTEGER NOT NULL CHECK (doctor_id > 0),
			slot_date TEXT NOT NULL,
			slot_time TEXT NOT NULL,
			patient_name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(doctor_id, slot_date, slot_time)
		)`,
		`CREATE TABLE IF NOT EXISTS event_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			entity_id TEXT,
			payload TEXT,
			created_at TEXT NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return fmt.Errorf("execute migration query: %w", err)
		}
	}

	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func formatStamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseStamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func scanSQLiteSlotDefinition(row rowScanner) (*SlotDefinition, error) {
	var d SlotDefinition
	var createdAt, updatedAt string

	err := row.Scan(&d.ID, &d.DoctorID, &d.Date, &d.StartTime, &d.EndTime, &d.SlotDuration, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotDefinitionNotFound
		}
		return nil, err
	}

	d.CreatedAt = parseStamp(createdAt)
	d.UpdatedAt = parseStamp(updatedAt)
	return &d, nil
}

func scanSQLiteAppointment(row rowScanner) (*Appointment, error) {
	var a Appointment
	var createdAt string

	err := row.Scan(&a.ID, &a.DoctorID, &a.Date, &a.Time, &a.PatientName, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CreatedAt = parseStamp(createdAt)
	return &a, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
}

// Slot definitions

func (r *SQLiteRepository) ListSlotDefinitions(ctx context.Context, f SlotDefinitionFilter) ([]SlotDefinition, error) {
	var conds []string
	var args []any
	if f.DoctorID != 0 {
		conds = append(conds, "doctor_id = ?")
		args = append(args, f.DoctorID)
	}
	if f.Date != "" {
		conds = append(conds, "slot_date = ?")
		args = append(args, f.Date)
	}
	if f.ExcludeID != uuid.Nil {
		conds = append(conds, "id <> ?")
		args = append(args, f.ExcludeID)
	}

	query := `SELECT ` + slotDefinitionColumns + ` FROM slot_definitions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY slot_date, start_time"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slot definitions: %w", err)
	}
	defer rows.Close()

	result := []SlotDefinition{}
	for rows.Next() {
		d, err := scanSQLiteSlotDefinition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	return result, rows.Err()
}

func (r *SQLiteRepository) GetSlotDefinitionByID(ctx context.Context, id uuid.UUID) (*SlotDefinition, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+slotDefinitionColumns+` FROM slot_definitions WHERE id = ?`, id)
	return scanSQLiteSlotDefinition(row)
}

func (r *SQLiteRepository) CreateSlotDefinition(ctx context.Context, def SlotDefinition) (*SlotDefinition, error) {
	now := time.Now()
	def.ID = uuid.New()
	def.CreatedAt = now
	def.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO slot_definitions (id, doctor_id, slot_date, start_time, end_time, slot_duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.DoctorID, def.Date, def.StartTime, def.EndTime, def.SlotDuration,
		formatStamp(now), formatStamp(now))
	if err != nil {
		return nil, fmt.Errorf("insert slot definition: %w", err)
	}

	return &def, nil
}

func (r *SQLiteRepository) UpdateSlotDefinition(ctx context.Context, id uuid.UUID, startTime, endTime string, slotDuration int) (*SlotDefinition, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE slot_definitions
		SET start_time = ?, end_time = ?, slot_duration = ?, updated_at = ?
		WHERE id = ?`,
		startTime, endTime, slotDuration, formatStamp(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update slot definition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSlotDefinitionNotFound
	}

	return r.GetSlotDefinitionByID(ctx, id)
}

func (r *SQLiteRepository) DeleteSlotDefinition(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM slot_definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete slot definition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotDefinitionNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListDoctorIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT doctor_id FROM slot_definitions ORDER BY doctor_id`)
	if err != nil {
		return nil, fmt.Errorf("list doctor ids: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Appointments

func (r *SQLiteRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	var conds []string
	var args []any
	if f.DoctorID != 0 {
		conds = append(conds, "doctor_id = ?")
		args = append(args, f.DoctorID)
	}
	if f.Date != "" {
		conds = append(conds, "slot_date = ?")
		args = append(args, f.Date)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY slot_date, slot_time"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanSQLiteAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	return result, rows.Err()
}

func (r *SQLiteRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	return scanSQLiteAppointment(row)
}

func (r *SQLiteRepository) GetAppointmentBySlot(ctx context.Context, doctorID int64, date, slotTime string) (*Appointment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = ? AND slot_date = ? AND slot_time = ?`,
		doctorID, date, slotTime)
	return scanSQLiteAppointment(row)
}

func (r *SQLiteRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO appointments (id, doctor_id, slot_date, slot_time, patient_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.DoctorID, a.Date, a.Time, a.PatientName, formatStamp(a.CreatedAt))
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrDuplicateAppointment
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	return &a, nil
}

func (r *SQLiteRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *SQLiteRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var payload *string
	if ev.Payload != nil {
		p := string(ev.Payload)
		payload = &p
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO event_logs (event_type, entity_id, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		ev.EventType, ev.EntityID, payload, formatStamp(createdAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events first, up to limit.
func (r *SQLiteRepository) ListEvents(ctx context.Context, limit int) ([]EventLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_type, entity_id, payload, created_at
		FROM event_logs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []EventLog
	for rows.Next() {
		var ev EventLog
		var entityID uuid.NullUUID
		var payload sql.NullString
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.EventType, &entityID, &payload, &createdAt); err != nil {
			return nil, err
		}
		if entityID.Valid {
			id := entityID.UUID
			ev.EntityID = &id
		}
		if payload.Valid {
			ev.Payload = []byte(payload.String)
		}
		ev.CreatedAt = parseStamp(createdAt)
		events = append(events, ev)
	}

	return events, rows.Err()
}

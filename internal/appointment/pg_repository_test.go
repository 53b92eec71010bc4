package appointment

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestWhereClause(t *testing.T) {
	exclude := uuid.MustParse("6f1c2b3a-0000-4000-8000-000000000001")
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		build    func(w *whereClause)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filters",
			build:   func(*whereClause) {},
			wantSQL: "",
		},
		{
			name: "doctor only",
			build: func(w *whereClause) {
				w.add("doctor_id = $%d", int64(7))
			},
			wantSQL:  "WHERE doctor_id = $1",
			wantArgs: []any{int64(7)},
		},
		{
			name: "doctor, date and exclusion",
			build: func(w *whereClause) {
				w.add("doctor_id = $%d", int64(7))
				w.add("slot_date = $%d", date)
				w.add("id <> $%d", exclude)
			},
			wantSQL:  "WHERE doctor_id = $1 AND slot_date = $2 AND id <> $3",
			wantArgs: []any{int64(7), date, exclude},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w whereClause
			tt.build(&w)

			if got := w.String(); got != tt.wantSQL {
				t.Errorf("String() = %q, want %q", got, tt.wantSQL)
			}
			if !reflect.DeepEqual(w.args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", w.args, tt.wantArgs)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"wrapped non-postgres error", fmt.Errorf("insert: %w", errors.New("connection reset")), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPgDate(t *testing.T) {
	got, err := pgDate("2030-06-01")
	if err != nil {
		t.Fatalf("pgDate() error: %v", err)
	}
	if want := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("pgDate() = %v, want %v", got, want)
	}

	for _, bad := range []string{"2099-02-30", "2030-6-1", ""} {
		if _, err := pgDate(bad); err == nil {
			t.Errorf("pgDate(%q) should fail", bad)
		}
	}
}

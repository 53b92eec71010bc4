package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
)

// flexInt accepts a JSON number or a numeric string. Empty strings and null
// decode to zero so the service reports the field as missing.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}

	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*f = 0
			return nil
		}
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%q is not an integer", raw)
	}
	*f = flexInt(n)
	return nil
}

type CreateSlotRequest struct {
	DoctorID     flexInt `json:"doctorId"`
	Date         string  `json:"date"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	SlotDuration flexInt `json:"slotDuration"`
}

type UpdateSlotRequest struct {
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	SlotDuration flexInt `json:"slotDuration"`
}

type BookingRequest struct {
	DoctorID    flexInt `json:"doctorId"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	PatientName string  `json:"patientName"`
}

type SlotResponse struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     int64     `json:"doctorId"`
	Date         string    `json:"date"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	SlotDuration int       `json:"slotDuration"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    int64     `json:"doctorId"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	PatientName string    `json:"patientName"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SlotStatusResponse struct {
	Time     string `json:"time"`
	IsBooked bool   `json:"isBooked"`
}

type SuccessResponse struct {
	Status bool `json:"status"`
	Data   any  `json:"data"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toSlotResponse(d *appointment.SlotDefinition) SlotResponse {
	return SlotResponse{
		ID:           d.ID,
		DoctorID:     d.DoctorID,
		Date:         d.Date,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		SlotDuration: d.SlotDuration,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		Date:        a.Date,
		Time:        a.Time,
		PatientName: a.PatientName,
		CreatedAt:   a.CreatedAt,
	}
}

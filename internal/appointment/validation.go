package appointment

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

var patientNamePattern = regexp.MustCompile(`^[A-Za-z ]+$`)

// BookingRequest asks for one slot of a doctor on a date.
type BookingRequest struct {
	DoctorID    int64  `validate:"required,gt=0"`
	Date        string `validate:"required,calendar_date"`
	Time        string `validate:"required"`
	PatientName string `validate:"required,patient_name,min=2,max=50"`
}

// CreateSlotRequest declares a new availability window.
type CreateSlotRequest struct {
	DoctorID     int64  `validate:"required,gt=0"`
	Date         string `validate:"required,calendar_date"`
	StartTime    string `validate:"required,clock"`
	EndTime      string `validate:"required,clock"`
	SlotDuration int    `validate:"required,slot_duration"`
}

// UpdateSlotRequest replaces the window and duration of an existing definition.
type UpdateSlotRequest struct {
	StartTime    string `validate:"required,clock"`
	EndTime      string `validate:"required,clock"`
	SlotDuration int    `validate:"required,slot_duration"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return schedule.ValidClock(fl.Field().String())
	})
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		return schedule.ValidDate(fl.Field().String())
	})
	_ = v.RegisterValidation("slot_duration", func(fl validator.FieldLevel) bool {
		return schedule.AllowedDuration(int(fl.Field().Int()))
	})
	_ = v.RegisterValidation("patient_name", func(fl validator.FieldLevel) bool {
		return patientNamePattern.MatchString(fl.Field().String())
	})

	return v
}

var fieldLabels = map[string]string{
	"DoctorID":     "doctorId",
	"Date":         "date",
	"Time":         "time",
	"PatientName":  "patientName",
	"StartTime":    "startTime",
	"EndTime":      "endTime",
	"SlotDuration": "slotDuration",
}

// validateStruct runs the tag rules on req. Missing fields are reported
// before any other rule so a partially filled form gets one clear message.
func (s *Service) validateStruct(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return unexpectedError("validate request", err)
	}

	var missing []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fieldLabels[fe.Field()])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return validationError("All fields are required", "missing: "+strings.Join(missing, ", "))
	}

	return fieldError(fieldErrs[0])
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "patient_name":
		return validationError("Patient name must contain only letters and spaces", "")
	case "min", "max":
		if fe.Field() == "PatientName" {
			return validationError("Patient name must be between 2 and 50 characters", "")
		}
	case "gt":
		if fe.Field() == "DoctorID" {
			return validationError("Doctor ID must be a positive integer", "")
		}
	case "calendar_date":
		return validationError("Date must be in YYYY-MM-DD format", "")
	case "clock":
		return validationError(fieldLabels[fe.Field()]+" must be in HH:MM format", "")
	case "slot_duration":
		return validationError("Slot duration must be one of 15, 30, 45 or 60 minutes", "")
	}
	return validationError("Invalid "+fieldLabels[fe.Field()], "")
}

func checkDoctorDay(doctorID int64, date string) error {
	if doctorID <= 0 {
		return validationError("Doctor ID must be a positive integer", "")
	}
	if date == "" {
		return validationError("Date parameter is required", "")
	}
	if !schedule.ValidDate(date) {
		return validationError("Date must be in YYYY-MM-DD format", "")
	}
	return nil
}

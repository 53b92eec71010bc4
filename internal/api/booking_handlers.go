package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
)

func bookHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookingRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookingRequest{
			DoctorID:    int64(req.DoctorID),
			Date:        req.Date,
			Time:        req.Time,
			PatientName: req.PatientName,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusCreated, map[string]any{
			"message":     "Appointment booked successfully",
			"appointment": toAppointmentResponse(appt),
		})
	}
}

func cancelBookingHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "Invalid booking id")
		if !ok {
			return
		}

		if err := svc.Cancel(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusOK, map[string]any{"message": "Booking cancelled successfully"})
	}
}

func bookingsByDateHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listBookings(w, r, svc, chi.URLParam(r, "date"))
	}
}

func bookingsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listBookings(w, r, svc, r.URL.Query().Get("date"))
	}
}

func listBookings(w http.ResponseWriter, r *http.Request, svc *appointment.Service, date string) {
	filter := appointment.BookingFilter{Date: date}

	if raw := r.URL.Query().Get("doctorId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "Doctor ID must be a positive integer", "")
			return
		}
		filter.DoctorID = id
	}

	appts, err := svc.ListBookings(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}

	bookings := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		bookings = append(bookings, toAppointmentResponse(&appts[i]))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"bookings": bookings})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
)

func createSlotHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		def, err := svc.CreateSlot(r.Context(), appointment.CreateSlotRequest{
			DoctorID:     int64(req.DoctorID),
			Date:         req.Date,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			SlotDuration: int(req.SlotDuration),
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusCreated, map[string]any{
			"message": "Slot created successfully",
			"slot":    toSlotResponse(def),
		})
	}
}

func updateSlotHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "Invalid slot id")
		if !ok {
			return
		}

		var req UpdateSlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		def, err := svc.UpdateSlot(r.Context(), id, appointment.UpdateSlotRequest{
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			SlotDuration: int(req.SlotDuration),
		})
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusOK, map[string]any{
			"message": "Slot updated successfully",
			"slot":    toSlotResponse(def),
		})
	}
}

func deleteSlotHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "Invalid slot id")
		if !ok {
			return
		}

		if err := svc.DeleteSlot(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusOK, map[string]any{"message": "Slot deleted successfully"})
	}
}

func doctorSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		defs, err := svc.ListDoctorSlots(r.Context(), doctorID, r.URL.Query().Get("date"))
		if err != nil {
			handleError(w, r, err)
			return
		}

		slots := make([]SlotResponse, 0, len(defs))
		for i := range defs {
			slots = append(slots, toSlotResponse(&defs[i]))
		}
		writeSuccess(w, http.StatusOK, map[string]any{"slots": slots})
	}
}

func availableSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		free, err := svc.FreeSlots(r.Context(), doctorID, r.URL.Query().Get("date"))
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeSuccess(w, http.StatusOK, map[string]any{"available": free})
	}
}

func allSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := doctorIDParam(w, r)
		if !ok {
			return
		}

		statuses, err := svc.AllSlots(r.Context(), doctorID, r.URL.Query().Get("date"))
		if err != nil {
			handleError(w, r, err)
			return
		}

		slots := make([]SlotStatusResponse, 0, len(statuses))
		for _, s := range statuses {
			slots = append(slots, SlotStatusResponse{Time: s.Time, IsBooked: s.IsBooked})
		}
		writeSuccess(w, http.StatusOK, map[string]any{"slots": slots})
	}
}

func doctorsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := svc.ListDoctors(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		if ids == nil {
			ids = []int64{}
		}
		writeSuccess(w, http.StatusOK, map[string]any{"doctors": ids})
	}
}

// The {id} path segment is shared by the doctor and slot routes under /slots,
// each handler reads it as the identifier it expects.

func doctorIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Doctor ID must be a positive integer", "")
		return 0, false
	}
	return id, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, message, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
)

type RouterConfig struct {
	Service        *appointment.Service
	Logger         zerolog.Logger
	Checks         []DependencyCheck
	Env            string
	Version        string
	FrontendURL    string
	RequestTimeout time.Duration
}

// useMiddleware installs the shared chain. Metrics wraps Recovery so a
// recovered panic is counted as a 500.
func useMiddleware(r chi.Router, cfg RouterConfig) {
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Compress(5))
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	useMiddleware(r, cfg)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" "+r.URL.Path)
	})

	// Health endpoints
	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Post("/slots", createSlotHandler(cfg.Service))
		r.Get("/slots/{id}", availableSlotsHandler(cfg.Service))
		r.Put("/slots/{id}", updateSlotHandler(cfg.Service))
		r.Delete("/slots/{id}", deleteSlotHandler(cfg.Service))
		r.Get("/doctor-slots/{id}", doctorSlotsHandler(cfg.Service))
		r.Get("/all-slots/{id}", allSlotsHandler(cfg.Service))
		r.Get("/doctors", doctorsHandler(cfg.Service))

		r.Post("/book", bookHandler(cfg.Service))
		r.Delete("/book/{id}", cancelBookingHandler(cfg.Service))
		r.Get("/bookings", bookingsHandler(cfg.Service))
		r.Get("/bookings/{date}", bookingsByDateHandler(cfg.Service))
	})

	return r
}

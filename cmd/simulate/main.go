package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/doctor-slot-booking/internal/logging"
	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	Days        int
	CancelRatio float64
	ReadRatio   float64
	TargetLimit int
}

type Simulator struct {
	config  SimConfig
	client  *apiClient
	pool    *TargetPool
	metrics Metrics
	log     zerolog.Logger
}

func main() {
	var cfg SimConfig

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Race concurrent bookings against a running api-server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.APIBaseURL, "url", envOr("SIM_API_BASE_URL", "http://localhost:8080"), "api-server base URL")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 30*time.Second, "how long to run")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 20, "concurrent workers")
	cmd.Flags().IntVar(&cfg.Days, "days", 7, "days from tomorrow to collect free slots for")
	cmd.Flags().Float64Var(&cfg.CancelRatio, "cancel-ratio", 0.1, "share of operations that cancel a booking")
	cmd.Flags().Float64Var(&cfg.ReadRatio, "read-ratio", 0.3, "share of operations that read availability")
	cmd.Flags().IntVar(&cfg.TargetLimit, "targets", 50, "max distinct slots to fight over")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if cfg.CancelRatio < 0 || cfg.ReadRatio < 0 || cfg.CancelRatio+cfg.ReadRatio >= 1 {
		return fmt.Errorf("cancel-ratio and read-ratio must be non-negative and leave room for bookings")
	}
	if cfg.TargetLimit <= 0 {
		return fmt.Errorf("targets must be > 0")
	}
	return nil
}

func run(ctx context.Context, cfg SimConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger := logging.New("dev", "info")
	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("cancel_ratio", cfg.CancelRatio).
		Float64("read_ratio", cfg.ReadRatio).
		Msg("simulator starting")

	client := &apiClient{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	pool, err := loadTargets(loadCtx, client, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}
	logger.Info().Int("targets", len(pool.Targets)).Msg("loaded free slots")

	sim := &Simulator{config: cfg, client: client, pool: pool, log: logger}
	sim.Run(ctx)
	sim.PrintReport()

	if violations := sim.pool.Violations(); len(violations) > 0 {
		return fmt.Errorf("double bookings detected: %s", strings.Join(violations, ", "))
	}
	return nil
}

// loadTargets collects free slots for the next days across every doctor.
func loadTargets(ctx context.Context, client *apiClient, cfg SimConfig) (*TargetPool, error) {
	doctors, err := client.Doctors(ctx)
	if err != nil {
		return nil, err
	}

	pool := newTargetPool()
	tomorrow := time.Now().AddDate(0, 0, 1)

	for _, doctor := range doctors {
		for d := 0; d < cfg.Days; d++ {
			date := tomorrow.AddDate(0, 0, d).Format(schedule.DateLayout)
			free, err := client.Available(ctx, doctor, date)
			if err != nil {
				return nil, err
			}
			for _, t := range free {
				pool.Targets = append(pool.Targets, Target{DoctorID: doctor, Date: date, Time: t})
				if len(pool.Targets) >= cfg.TargetLimit {
					return pool, nil
				}
			}
		}
	}

	if len(pool.Targets) == 0 {
		return nil, fmt.Errorf("no free slots found, run seed first")
	}
	return pool, nil
}

func (s *Simulator) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < s.config.CancelRatio:
			s.doCancel(ctx, rng)
		case r < s.config.CancelRatio+s.config.ReadRatio:
			s.doRead(ctx, rng)
		default:
			s.doBooking(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Targets[rng.Intn(len(s.pool.Targets))]

	start := time.Now()
	id, status, err := s.client.Book(ctx, target, patientNames[rng.Intn(len(patientNames))])
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	switch {
	case err == nil && status == http.StatusCreated:
		s.pool.Booked(target, id)
		s.metrics.Booking.Record(latency, outcomeSuccess)
	case status == http.StatusConflict:
		s.metrics.Booking.Record(latency, outcomeConflict)
	default:
		s.metrics.Booking.Record(latency, outcomeError)
	}
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	target, id, ok := s.pool.TakeBooking(rng)
	if !ok {
		return
	}

	start := time.Now()
	status, err := s.client.Cancel(ctx, id)
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	switch {
	case err == nil && status == http.StatusOK:
		s.pool.Cancelled(target, id)
		s.metrics.Cancel.Record(latency, outcomeSuccess)
	case status == http.StatusNotFound:
		s.metrics.Cancel.Record(latency, outcomeConflict)
	default:
		s.metrics.Cancel.Record(latency, outcomeError)
	}
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Targets[rng.Intn(len(s.pool.Targets))]

	start := time.Now()
	_, err := s.client.Available(ctx, target.DoctorID, target.Date)
	latency := time.Since(start)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		s.metrics.Availability.Record(latency, outcomeError)
		return
	}
	s.metrics.Availability.Record(latency, outcomeSuccess)
}

var patientNames = []string{
	"Ada Lovelace", "Grace Hopper", "Alan Turing", "Edsger Dijkstra",
	"Barbara Liskov", "Ken Thompson", "Rob Pike", "Margaret Hamilton",
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	"github.com/hackgods/doctor-slot-booking/internal/config"
	"github.com/hackgods/doctor-slot-booking/internal/db"
	"github.com/hackgods/doctor-slot-booking/internal/logging"
	"github.com/hackgods/doctor-slot-booking/internal/schedule"
)

type seedOptions struct {
	doctors   int
	days      int
	bookRatio float64
}

func main() {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the configured store with fake slot definitions and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.doctors, "doctors", 5, "number of doctors")
	cmd.Flags().IntVar(&opts.days, "days", 7, "number of days starting tomorrow")
	cmd.Flags().Float64Var(&opts.bookRatio, "book-ratio", 0.3, "share of generated slots to book")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)

	repo, closeFn, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	svc := appointment.NewService(repo, nil,
		appointment.WithLocation(cfg.Location),
		appointment.WithLogger(logger),
	)

	faker := gofakeit.New(0)
	start := time.Now().In(cfg.Location).AddDate(0, 0, 1)

	logger.Info().Int("doctors", opts.doctors).Int("days", opts.days).Msg("seed starting")

	var defs, booked int
	for doctor := int64(1); doctor <= int64(opts.doctors); doctor++ {
		for d := 0; d < opts.days; d++ {
			date := start.AddDate(0, 0, d).Format(schedule.DateLayout)

			n, err := seedDay(ctx, svc, faker, doctor, date)
			if err != nil {
				return err
			}
			defs += n

			b, err := bookSome(ctx, svc, faker, doctor, date, opts.bookRatio, logger)
			if err != nil {
				return err
			}
			booked += b
		}
		logger.Info().Int64("doctor_id", doctor).Msg("doctor seeded")
	}

	logger.Info().Int("slot_definitions", defs).Int("appointments", booked).Msg("seed complete")
	return nil
}

// seedDay declares a morning window and, most days, an afternoon one.
func seedDay(ctx context.Context, svc *appointment.Service, faker *gofakeit.Faker, doctor int64, date string) (int, error) {
	windows := [][2]string{{"09:00", "12:00"}}
	if faker.Number(0, 3) > 0 {
		windows = append(windows, [2]string{"14:00", "17:00"})
	}

	created := 0
	for _, w := range windows {
		dur := schedule.AllowedDurations[faker.Number(0, len(schedule.AllowedDurations)-1)]
		_, err := svc.CreateSlot(ctx, appointment.CreateSlotRequest{
			DoctorID:     doctor,
			Date:         date,
			StartTime:    w[0],
			EndTime:      w[1],
			SlotDuration: dur,
		})
		if err != nil {
			// a conflict means a previous run already seeded this window
			if appointment.KindOf(err) != appointment.KindConflict {
				return created, err
			}
			continue
		}
		created++
	}
	return created, nil
}

func bookSome(ctx context.Context, svc *appointment.Service, faker *gofakeit.Faker, doctor int64, date string, ratio float64, logger zerolog.Logger) (int, error) {
	free, err := svc.FreeSlots(ctx, doctor, date)
	if err != nil {
		return 0, err
	}

	booked := 0
	for _, t := range free {
		if faker.Float64() >= ratio {
			continue
		}

		_, err := svc.Book(ctx, appointment.BookingRequest{
			DoctorID:    doctor,
			Date:        date,
			Time:        t,
			PatientName: faker.FirstName() + " " + faker.LastName(),
		})
		if err != nil {
			if appointment.KindOf(err) == appointment.KindUnexpected {
				return booked, err
			}
			// fake names occasionally carry punctuation
			logger.Debug().Err(err).Str("time", t).Msg("booking skipped")
			continue
		}
		booked++
	}
	return booked, nil
}

func openRepository(ctx context.Context, cfg config.Config) (appointment.Repository, func(), error) {
	if cfg.StorageDriver == config.DriverSQLite {
		repo, err := appointment.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	}

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PGMaxConns, cfg.PGMinConns)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.NewMigrator(pool).Up(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return appointment.NewPgRepository(pool), pool.Close, nil
}

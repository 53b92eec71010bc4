package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/api"
	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	"github.com/hackgods/doctor-slot-booking/internal/config"
	"github.com/hackgods/doctor-slot-booking/internal/db"
	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
)

// backend is everything the server needs from its stores, plus a single
// cleanup that closes them in reverse order.
type backend struct {
	repo   appointment.Repository
	locker redisclient.Locker
	checks []api.DependencyCheck
	close  func()
}

func openBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger, migrate bool) (*backend, error) {
	b := &backend{close: func() {}}

	switch cfg.StorageDriver {
	case config.DriverSQLite:
		repo, err := appointment.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened SQLite storage")
		b.repo = repo
		b.close = func() {
			if err := repo.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing sqlite")
			}
		}

	default:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PGMaxConns, cfg.PGMinConns)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("postgres connection error: %w", err)
		}
		logger.Info().Msg("connected to Postgres")

		if migrate {
			n, err := db.NewMigrator(pool).Up(ctx)
			if err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info().Int("applied", n).Msg("migrations up to date")
		}

		b.repo = appointment.NewPgRepository(pool)
		b.close = pool.Close
	}

	b.checks = append(b.checks, api.DependencyCheck{Name: cfg.StorageDriver, Critical: true, Ping: b.repo.Ping})

	if !cfg.LockingEnabled() {
		logger.Warn().Msg("REDIS_ADDR not set, distributed locking disabled")
		return b, nil
	}

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		b.close()
		return nil, fmt.Errorf("redis connection error: %w", err)
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	b.locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	b.checks = append(b.checks, api.DependencyCheck{
		Name: "redis",
		Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	closeStore := b.close
	b.close = func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
		closeStore()
	}

	return b, nil
}

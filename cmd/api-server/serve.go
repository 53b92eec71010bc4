package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/doctor-slot-booking/internal/api"
	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	"github.com/hackgods/doctor-slot-booking/internal/config"
	"github.com/hackgods/doctor-slot-booking/internal/logging"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending Postgres migrations before serving")
	return cmd
}

func runServer(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("storage", cfg.StorageDriver).
		Str("timezone", cfg.Location.String()).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(rootCtx, cfg, logger, migrate)
	if err != nil {
		return err
	}
	defer b.close()

	svc := appointment.NewService(b.repo, b.locker,
		appointment.WithLocation(cfg.Location),
		appointment.WithLogger(logger),
	)

	srv := newHTTPServer(rootCtx, net.JoinHostPort("", cfg.HTTPPort), api.NewRouter(api.RouterConfig{
		Service:        svc,
		Logger:         logger,
		Checks:         b.checks,
		Env:            cfg.Env,
		Version:        version,
		FrontendURL:    cfg.FrontendURL,
		RequestTimeout: cfg.RequestTimeout,
	}))

	go refreshGauges(rootCtx, svc, cfg.GaugeInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-rootCtx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	logger.Info().Msg("api-server stopped")
	return nil
}

// newHTTPServer keeps request contexts detached from the shutdown signal, so
// in-flight requests finish while Shutdown drains them.
func newHTTPServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	base := context.WithoutCancel(ctx)
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
}

// refreshGauges publishes free slot counts once at startup and then on every tick.
func refreshGauges(ctx context.Context, svc *appointment.Service, interval time.Duration, logger zerolog.Logger) {
	runOnce(ctx, svc, logger)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.RefreshFreeSlotGauges(runCtx); err != nil {
		logger.Error().Err(err).Msg("free slot gauge refresh failed")
		return
	}
	logger.Debug().Dur("took", time.Since(start)).Msg("free slot gauges refreshed")
}

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-agenda/internal/agenda"
	"github.com/hackgods/clinic-agenda/internal/appointment"
	"github.com/hackgods/clinic-agenda/internal/catalog"
	"github.com/hackgods/clinic-agenda/internal/config"
	"github.com/hackgods/clinic-agenda/internal/db"
	"github.com/hackgods/clinic-agenda/internal/logger"
	"github.com/hackgods/clinic-agenda/internal/metrics"
	redisclient "github.com/hackgods/clinic-agenda/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("agenda-worker", "info", true, "")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logger.New("agenda-worker", cfg.LogLevel, !cfg.IsProd(), cfg.LogFile)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.RefreshInterval).Msg("agenda-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, db.Options{
		DSN:              cfg.PostgresDSN,
		AppName:          "clinic-agenda-worker",
		MaxConns:         cfg.PostgresMaxConns,
		StatementTimeout: cfg.StatementTimeout,
	})
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	rooms := catalog.NewHolder(catalog.Default())

	metrics.Register()
	go serveMetrics(rootCtx, cfg.MetricsPort, log)

	agg := agenda.NewAggregator(time.Now, agenda.AlertOptions{
		Location:     cfg.Location,
		ReminderLead: cfg.ReminderLead,
	})
	svc := agenda.NewService(
		appointment.NewPgRepository(pgPool),
		agenda.NewPgStore(pgPool),
		rooms,
		redisclient.NewJSONCache(rdb, "agenda", cfg.AgendaCacheTTL),
		agg,
		log,
	)

	if cfg.RoomsCatalogPath != "" {
		err := catalog.Watch(rootCtx, cfg.RoomsCatalogPath, time.Minute,
			rooms.Follow(rootCtx, func(ctx context.Context, _ *catalog.Catalog) { svc.Invalidate(ctx) }),
			func(err error) { log.Warn().Err(err).Msg("room catalog reload failed, keeping previous") })
		if err != nil {
			log.Warn().Err(err).Msg("room catalog unavailable, using built-in rooms")
		}
	}

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping agenda worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

// runOnce rebuilds today's agenda, which warms the cache and refreshes the
// room and alert gauges.
func runOnce(ctx context.Context, svc *agenda.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	today := svc.Today()
	data, err := svc.Refresh(runCtx, today)
	if err != nil {
		log.Error().Err(err).Str("date", today).Msg("agenda refresh failed")
		return
	}
	agenda.PublishGauges(data)

	log.Info().
		Str("date", today).
		Int("appointments", data.Stats.TotalAppointments).
		Int("alerts", len(data.Alerts)).
		Int("critical", data.Stats.CriticalAlerts).
		Dur("took", time.Since(start)).
		Msg("agenda refresh complete")
}

func serveMetrics(ctx context.Context, port string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server error")
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/clinic-agenda/internal/agenda"
	"github.com/hackgods/clinic-agenda/internal/api"
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
		bootLog := logger.New("api-server", "info", true, "")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logger.New("api-server", cfg.LogLevel, !cfg.IsProd(), cfg.LogFile)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Str("tz", cfg.TimeZone).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, db.Options{
		DSN:              cfg.PostgresDSN,
		AppName:          "clinic-agenda-api",
		MaxConns:         cfg.PostgresMaxConns,
		StatementTimeout: cfg.StatementTimeout,
	})
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	applied, err := db.Migrate(rootCtx, pgPool)
	if err != nil {
		log.Fatal().Err(err).Msg("migration error")
	}
	log.Info().Int("applied", applied).Msg("migrations up to date")

	// Connect Redis
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

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	apptSvc := appointment.NewService(repo, locker, rooms, cfg.Location, log)

	cache := redisclient.NewJSONCache(rdb, "agenda", cfg.AgendaCacheTTL)
	agg := agenda.NewAggregator(time.Now, agenda.AlertOptions{
		Location:     cfg.Location,
		ReminderLead: cfg.ReminderLead,
	})
	agendaSvc := agenda.NewService(repo, agenda.NewPgStore(pgPool), rooms, cache, agg, log)
	apptSvc.OnChange(agendaSvc.Invalidate)
	apptSvc.WithFollowUps(agendaSvc)

	// Room names and availability feed the cached agendas.
	if cfg.RoomsCatalogPath != "" {
		err := catalog.Watch(rootCtx, cfg.RoomsCatalogPath, time.Minute,
			rooms.Follow(rootCtx, func(ctx context.Context, c *catalog.Catalog) {
				agendaSvc.Invalidate(ctx)
				log.Info().Str("path", cfg.RoomsCatalogPath).Int("rooms", len(c.Rooms())).Msg("room catalog loaded")
			}),
			func(err error) {
				log.Warn().Err(err).Str("path", cfg.RoomsCatalogPath).Msg("room catalog reload failed, keeping previous")
			})
		if err != nil {
			log.Warn().Err(err).Msg("room catalog unavailable, using built-in rooms")
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Appointments: apptSvc,
		Agenda:       agendaSvc,
		Rooms:        rooms,
		Location:     cfg.Location,
		Health: api.NewHealthHandler(
			pgPool.Ping,
			func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			cfg.Env, cfg.Version,
		),
		Metrics: promhttp.Handler(),
		Log:     log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

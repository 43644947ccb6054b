package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"hydromate/internal/api"
	"hydromate/internal/config"
	"hydromate/internal/events"
	"hydromate/internal/metrics"
	"hydromate/internal/notify"
	"hydromate/internal/report"
	"hydromate/internal/service"
	"hydromate/internal/store"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("HYDROMATE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	settings := store.NewSettingsStore(db, cfg.DefaultGoal())
	reminders := store.NewReminderStore(db)
	intake := store.NewIntakeStore(db, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Backup.Enabled {
		backup := store.NewBackupService(cfg.Database.Path, store.BackupConfig{
			Enabled:       cfg.Backup.Enabled,
			IntervalHours: cfg.Backup.IntervalHours,
			Path:          cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backup.Start(ctx)
	}

	// Delivery channel: Telegram when configured, otherwise the log.
	var notifier notify.Notifier = notify.LogNotifier{Logger: &logger}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.BotToken != "YOUR_BOT_TOKEN_HERE" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram notifier error")
		}
		notifier = tg
		logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram delivery enabled")
	}

	engine := notify.NewTimerEngine(notify.EngineConfig{
		RatePerSecond: cfg.Notifications.RatePerSecond,
		Burst:         cfg.Notifications.Burst,
	}, notifier, &logger)

	perms := notify.StaticPermissions{
		Notifications:       cfg.Permissions.Notifications,
		ExactAlarms:         cfg.Permissions.ExactAlarms,
		BatteryOptimization: cfg.Permissions.BatteryOptimization,
	}

	scheduler := notify.NewScheduler(notify.SchedulerConfig{
		ChannelID:     cfg.Notifications.ChannelID,
		ChannelName:   cfg.Notifications.ChannelName,
		Sound:         cfg.Notifications.Sound,
		CheckInterval: cfg.ReconcileInterval(),
	}, engine, perms, reminders, intake, settings, &logger)
	if err := scheduler.EnsureChannel(ctx); err != nil {
		logger.Fatal().Err(err).Msg("create notification channel error")
	}

	reports := report.NewService(intake, settings, loc, &logger)
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		reports.UseRedisCache(rdb, cfg.CacheTTL())
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis stats cache enabled")
	}

	bus := events.NewEventBus()
	for _, eventType := range []string{
		events.TypeIntakeLogged, events.TypeIntakeDeleted,
		events.TypeGoalChanged, events.TypeProfileUpdated,
		events.TypeRemindersChanged,
	} {
		bus.Subscribe(eventType, func(e events.Event) error {
			logger.Debug().Str("event", e.Type).Fields(e.Payload).Msg("domain event")
			return nil
		})
	}

	customMin, customMax := cfg.CustomGoalBand()
	svc := service.New(settings, reminders, intake, scheduler, reports, notifier, bus, customMin, customMax, &logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	scheduler.Start(ctx)
	defer scheduler.Stop()

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := api.NewHTTPServer(fmt.Sprintf(":%d", port), svc, reports, intake, scheduler, &logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxShutdown)
	}()

	logger.Info().Msg("hydromate started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("http api error")
	}
}

func startHealthServer(ctx context.Context, port int, db *store.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

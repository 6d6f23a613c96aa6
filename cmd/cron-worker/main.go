package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sagabank-backend/api/controllers"
	"github.com/angelmondragon/sagabank-backend/api/routes"
	"github.com/angelmondragon/sagabank-backend/internal/cron"
	"github.com/angelmondragon/sagabank-backend/internal/host"
	"github.com/angelmondragon/sagabank-backend/internal/repo"
	"github.com/angelmondragon/sagabank-backend/pkg/config"
	"github.com/angelmondragon/sagabank-backend/pkg/db"
	"github.com/angelmondragon/sagabank-backend/pkg/instance"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/metrics"
	"github.com/angelmondragon/sagabank-backend/pkg/migrate"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(fmt.Sprintf("cron-worker:%s", envOrLocal(cfg.App.Env))), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	jobs, err := buildJobs(cfg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(promRegistry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	surface, err := host.NewService(host.ServiceParams{
		Logger: logg,
		Addr:   ":" + port,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Ready: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			HTTPMetrics:    metrics.NewHTTPMetrics(promRegistry),
			MetricsHandler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{Registry: promRegistry}),
		}),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create http surface", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"jobs":        service.JobNames(),
	})
	logg.Info(ctx, "starting cron worker")

	errCh := make(chan error, 2)
	go func() { errCh <- surface.Run(ctx) }()
	go func() { errCh <- service.Run(ctx) }()

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildJobs lists the housekeeping run each cycle: both retention jobs keep
// the saga tables bounded and the DLQ report surfaces stranded transactions.
func buildJobs(cfg *config.Config, dbClient *db.Client) ([]cron.Job, error) {
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, err
	}
	processedJob, err := cron.NewProcessedRetentionJob(dbClient, repo.NewProcessedMessages(dbClient.DB()), cfg.Cron.ProcessedMessageRetention)
	if err != nil {
		return nil, err
	}
	backlogJob, err := cron.NewDLQBacklogJob(outbox.NewDLQRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	return []cron.Job{outboxJob, processedJob, backlogJob}, nil
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

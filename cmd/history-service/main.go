package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sagabank-backend/api/controllers"
	"github.com/angelmondragon/sagabank-backend/api/routes"
	"github.com/angelmondragon/sagabank-backend/internal/consumers"
	"github.com/angelmondragon/sagabank-backend/internal/history"
	"github.com/angelmondragon/sagabank-backend/internal/host"
	"github.com/angelmondragon/sagabank-backend/pkg/bigquery"
	"github.com/angelmondragon/sagabank-backend/pkg/config"
	"github.com/angelmondragon/sagabank-backend/pkg/db"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/instance"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/metrics"
	"github.com/angelmondragon/sagabank-backend/pkg/migrate"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/sagabank-backend/pkg/pubsub"
	"github.com/angelmondragon/sagabank-backend/pkg/redis"
)

const serviceKind = "history-service"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)

	ready := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"pubsub":   pubsubClient,
	}
	pings := map[string]host.PingFunc{
		"database": dbClient.Ping,
		"redis":    redisClient.Ping,
		"pubsub":   pubsubClient.Ping,
	}

	// The BigQuery mirror is optional; history_events stays the source of truth.
	var (
		exporter history.Exporter
		bqClient *bigquery.Client
	)
	if cfg.FeatureFlags.HistoryExport {
		bqClient, err = bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery", err)
		bqExporter, err := history.NewBigQueryExporter(bqClient, history.RetryPolicy{})
		requireResource(ctx, logg, "history exporter", err)
		exporter = bqExporter
		ready["bigquery"] = bqClient
		pings["bigquery"] = bqClient.Ping
	}

	defer func() {
		err := multierr.Combine(pubsubClient.Close(), redisClient.Close(), dbClient.Close())
		if bqClient != nil {
			err = multierr.Append(err, bqClient.Close())
		}
		if err != nil {
			logg.Error(ctx, "error closing clients", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	consumerMetrics := metrics.NewConsumerMetrics(registry)

	historyRepo := history.NewRepository(dbClient.DB())
	service, err := history.NewService(historyRepo)
	requireResource(ctx, logg, "history service", err)

	recorder, err := history.NewRecorder(historyRepo, exporter, logg)
	requireResource(ctx, logg, "history recorder", err)

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	newRunner := func(name string, eventType enums.OutboxEventType, handler consumers.Handler, sub *gcppubsub.Subscriber) *consumers.Runner {
		if sub == nil {
			requireResource(ctx, logg, name+" subscription", errors.New("subscription not configured"))
		}
		sub.ReceiveSettings.MaxOutstandingMessages = cfg.Consumer.MaxOutstandingMessages
		runner, err := consumers.NewRunner(consumers.Options{
			Name:          name,
			EventTypes:    []enums.OutboxEventType{eventType},
			Handler:       handler,
			Subscription:  sub,
			Idempotency:   dedupe,
			Logger:        logg,
			Metrics:       consumerMetrics,
			RetryLimit:    cfg.Consumer.RetryLimit,
			RetryInterval: cfg.Consumer.RetryInterval,
		})
		requireResource(ctx, logg, name, err)
		return runner
	}

	runners := []*consumers.Runner{
		newRunner(history.ConsumerTransactionCreated, enums.EventTransactionCreated, recorder.TransactionCreated(), pubsubClient.HistoryCreatedSubscription()),
		newRunner(history.ConsumerAccountActionDone, enums.EventAccountActionDoneHistory, recorder.AccountActionDone(), pubsubClient.HistoryAccountActionSubscription()),
		newRunner(history.ConsumerTransactionCompleted, enums.EventTransactionCompleted, recorder.TransactionCompleted(), pubsubClient.HistoryCompletedSubscription()),
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Ready:          ready,
		Idempotency:    redisClient,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		History:        service,
	})

	server, err := host.NewService(host.ServiceParams{
		Logger:       logg,
		Addr:         listenAddr(cfg),
		Handler:      handler,
		Consumers:    runners,
		Dependencies: pings,
	})
	requireResource(ctx, logg, "host", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":           cfg.App.Env,
		"serviceKind":   cfg.Service.Kind,
		"instance":      instance.GetID(),
		"historyExport": cfg.FeatureFlags.HistoryExport,
	})
	logg.Info(runCtx, "starting history service")

	if err := server.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "history service stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "history service shutting down gracefully")
}

func listenAddr(cfg *config.Config) string {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	return ":" + port
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

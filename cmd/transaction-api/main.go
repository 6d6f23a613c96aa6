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
	"go.uber.org/multierr"

	"github.com/angelmondragon/sagabank-backend/api/controllers"
	"github.com/angelmondragon/sagabank-backend/api/routes"
	"github.com/angelmondragon/sagabank-backend/internal/consumers"
	"github.com/angelmondragon/sagabank-backend/internal/host"
	"github.com/angelmondragon/sagabank-backend/internal/transactions"
	"github.com/angelmondragon/sagabank-backend/pkg/config"
	"github.com/angelmondragon/sagabank-backend/pkg/db"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/instance"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/metrics"
	"github.com/angelmondragon/sagabank-backend/pkg/migrate"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/sagabank-backend/pkg/pubsub"
	"github.com/angelmondragon/sagabank-backend/pkg/redis"
)

const serviceKind = "transaction-api"

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

	defer func() {
		if err := multierr.Combine(pubsubClient.Close(), redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(ctx, "error closing clients", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	consumerMetrics := metrics.NewConsumerMetrics(registry)

	repo := transactions.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	service, err := transactions.NewService(dbClient, repo, emitter, logg)
	requireResource(ctx, logg, "transaction service", err)

	finalizer, err := transactions.NewFinalizer(dbClient, repo, emitter, logg)
	requireResource(ctx, logg, "transaction finalizer", err)

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	subscription := pubsubClient.FinalizerSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "finalizer subscription", errors.New("subscription not configured"))
	}
	subscription.ReceiveSettings.MaxOutstandingMessages = cfg.Consumer.MaxOutstandingMessages

	finalizerRunner, err := consumers.NewRunner(consumers.Options{
		Name:          transactions.FinalizerConsumerName,
		EventTypes:    []enums.OutboxEventType{enums.EventAccountActionDoneFinalizer},
		Handler:       finalizer,
		Subscription:  subscription,
		Idempotency:   dedupe,
		Logger:        logg,
		Metrics:       consumerMetrics,
		RetryLimit:    cfg.Consumer.RetryLimit,
		RetryInterval: cfg.Consumer.RetryInterval,
	})
	requireResource(ctx, logg, "finalizer consumer", err)

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		Idempotency:    redisClient,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Transactions:   service,
	})

	server, err := host.NewService(host.ServiceParams{
		Logger:    logg,
		Addr:      listenAddr(cfg),
		Handler:   handler,
		Consumers: []*consumers.Runner{finalizerRunner},
		Dependencies: map[string]host.PingFunc{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
			"pubsub":   pubsubClient.Ping,
		},
	})
	requireResource(ctx, logg, "host", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "starting transaction api")

	if err := server.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "transaction api stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "transaction api shutting down gracefully")
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

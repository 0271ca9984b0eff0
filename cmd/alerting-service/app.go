package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"argus/internal/alerting"
	"argus/internal/broker"
	"argus/internal/config"
	"argus/internal/constants"
	"argus/internal/dedup"
	"argus/internal/evaluate"
	"argus/internal/logger"
	"argus/internal/policy"
	"argus/internal/scenario"
	"argus/internal/triggers"
	"argus/pkg/bootstrap"
	"argus/pkg/cel"
	"argus/pkg/health"
	"argus/pkg/logging"
	"argus/pkg/metrics"
	"argus/pkg/migrations"
)

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	db          *sql.DB
	redisClient *redis.Client

	registry     *scenario.Registry
	dedupService *dedup.Service
	pipeline     *alerting.Service
	triggers     *triggers.Service
	server       *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("alerting-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker("alerting-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initPipeline(ctx); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	metrics.RegisterPipelineMetrics()
	metrics.RegisterDedupMetrics()
	metrics.RegisterTriggerMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	a.initHTTPServer()
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.Config.Database.RunMigrations {
		if err := migrations.RunPostgres(a.db, a.Logger); err != nil {
			return err
		}
	}

	if a.Config.Dedup.Backend == constants.DedupBackendRedis {
		redisClient, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return err
		}
		a.redisClient = redisClient
	}
	return nil
}

func (a *App) initPipeline(ctx context.Context) error {
	scenarioRepo := scenario.NewPostgresRepository(a.db)
	a.registry = scenario.NewRegistry(scenarioRepo, a.Config.Registry, a.Logger)
	if err := a.registry.Reload(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, "alerting-service")
		a.Logger.WarnwCtx(initCtx, "Failed to load initial scenario snapshot",
			"error", err,
		)
	}

	store, err := dedup.NewStore(a.Config.Dedup, a.db, a.redisClient, a.Logger)
	if err != nil {
		return err
	}
	a.dedupService = dedup.NewService(store, a.Config.Dedup.OnStoreError, a.Logger)

	celEvaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	evaluator := evaluate.NewEvaluator(celEvaluator)
	policyRepo := policy.NewPostgresRepository(a.db)
	resolver := policy.NewResolver(policyRepo, a.Config.Risk, a.Logger)
	dispatcher := alerting.NewDispatcher(a.dedupService)
	publisher := alerting.NewBrokerPublisher(a.Producer,
		a.Config.Broker.Kafka.IntentTopic, a.Config.Broker.Kafka.AuditTopic)

	triggerRepo := triggers.NewPostgresRepository(a.db)
	a.pipeline = alerting.NewService(a.registry, evaluator, resolver, dispatcher,
		a.dedupService, publisher, triggerRepo, a.Logger)

	if a.Config.Triggers.Enabled {
		a.triggers = triggers.NewService(triggerRepo, a.dedupService, publisher,
			a.Config.Triggers, a.Logger)
	}
	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.registry.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		a.dedupService.RunSweeper(gCtx, time.Duration(a.Config.Dedup.SweepSeconds)*time.Second)
		return nil
	})

	if a.triggers != nil {
		g.Go(func() error {
			a.triggers.Run(gCtx)
			return nil
		})
	}

	configConsumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
	if err != nil {
		configCtx := logging.WithServiceName(ctx, "alerting-service")
		a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, event-driven reload disabled",
			"error", err,
		)
	} else {
		configConsumer.SetServiceName("alerting-service")
		defer configConsumer.Close()
		configHandler := alerting.NewConfigUpdateHandler(a.registry, a.Logger)

		g.Go(func() error {
			configCtx := logging.WithServiceName(gCtx, "alerting-service")
			a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
				"topic", a.Config.Broker.Kafka.ConfigUpdateTopic,
			)
			return configConsumer.Consume(gCtx, a.Config.Broker.Kafka.ConfigUpdateTopic, configHandler)
		})
	}

	detectionHandler := alerting.NewDetectionHandler(a.pipeline, a.Logger)
	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Starting detection event consumer",
			"topic", a.Config.Broker.Kafka.DetectionTopic,
		)
		return a.Consumer.Consume(gCtx, a.Config.Broker.Kafka.DetectionTopic, detectionHandler)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "alerting-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down alerting service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			srvCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(srvCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.dedupService != nil {
			if err := a.dedupService.Close(); err != nil {
				errs = append(errs, fmt.Errorf("dedup store close error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(a.redisClient, a.db)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

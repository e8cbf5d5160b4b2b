package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearintake-ai/platform/pkg/audit"
	"github.com/clearintake-ai/platform/pkg/common/config"
	"github.com/clearintake-ai/platform/pkg/common/database"
	"github.com/clearintake-ai/platform/pkg/common/kafka"
	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/extraction"
	"github.com/clearintake-ai/platform/pkg/gateway/auth"
	"github.com/clearintake-ai/platform/pkg/gateway/middleware"
	"github.com/clearintake-ai/platform/pkg/intake"
	"github.com/clearintake-ai/platform/pkg/observability/metrics"
	"github.com/clearintake-ai/platform/pkg/pipeline"
	"github.com/clearintake-ai/platform/pkg/rules"
	"github.com/clearintake-ai/platform/pkg/terminology"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init("intake-service")
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	auditRepo := audit.NewRepository(db)
	if err := auditRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate audit tables")
	}
	intakeRepo := intake.NewRepository(db)
	if err := intakeRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate intake tables")
	}

	auditSvc := audit.NewService(auditRepo)

	plan, err := rules.LoadPlan(cfg.PlanRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load plan rules")
	}
	engine := rules.NewEngine(plan)

	catalog, err := terminology.Load(cfg.CPTCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load CPT catalog")
	}

	extractor := extraction.NewVisionExtractor(cfg.OCREndpoint, cfg.OCRAPIKey, cfg.OCRDeployment, cfg.OCRAPIVersion, cfg.OCRTimeout)
	orchestrator := pipeline.NewOrchestrator(intakeRepo, auditSvc, extractor, engine, cfg.SettleDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Runs execute in-process by default; the kafka dispatcher hands them
	// to a queue so a separate consumer pool can pick them up.
	var dispatcher pipeline.Dispatcher
	var producer *kafka.Producer
	var consumer *kafka.Consumer
	switch cfg.RunDispatch {
	case "kafka":
		producer = kafka.NewProducer(cfg.RunQueueTopic)
		dispatcher = pipeline.NewKafkaDispatcher(producer)

		consumer = kafka.NewConsumer(cfg.RunQueueTopic, cfg.KafkaGroupID)
		runConsumer := pipeline.NewRunConsumer(consumer, orchestrator)
		go func() {
			if err := runConsumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.WithError(err).Fatal("run consumer error")
			}
		}()
		logger.Log.WithField("topic", cfg.RunQueueTopic).Info("Dispatching pipeline runs via kafka")
	default:
		dispatcher = pipeline.NewInlineDispatcher(orchestrator, cfg.MaxPipelineRuns)
	}

	intakeSvc := intake.NewService(intakeRepo, auditSvc, catalog, cfg.UploadsDir, func(ctx context.Context, intakeID, runID, actor string) error {
		return dispatcher.Dispatch(ctx, pipeline.RunRequest{IntakeID: intakeID, RunID: runID, Actor: actor})
	})
	intakeHandler := intake.NewHandler(intakeSvc)
	auditHandler := audit.NewHandler(auditSvc)

	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
	if err != nil {
		logger.Log.WithError(err).Warn("OIDC authentication not configured, running without auth")
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	if oidcAuth != nil {
		api.Use(middleware.Authenticate(oidcAuth))
	}
	api.Use(middleware.Actor)
	intakeHandler.Register(api)
	auditHandler.Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.IntakePort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"addr":     address,
			"dispatch": cfg.RunDispatch,
		}).Info("Intake service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start intake service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down intake service...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Intake service forced to shutdown")
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Log.WithError(err).Error("Failed to close kafka producer")
		}
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Log.WithError(err).Error("Failed to close kafka consumer")
		}
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("Failed to close postgres")
	}

	logger.Log.Info("Intake service stopped")
}

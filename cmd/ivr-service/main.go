package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clearintake-ai/platform/pkg/common/config"
	"github.com/clearintake-ai/platform/pkg/common/database"
	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/gateway/middleware"
	"github.com/clearintake-ai/platform/pkg/ivr"
	"github.com/clearintake-ai/platform/pkg/observability/metrics"
	"github.com/clearintake-ai/platform/pkg/rules"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init("ivr-service")
	cfg := config.Load()

	plan, err := rules.LoadPlan(cfg.PlanRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load plan rules")
	}
	engine := rules.NewEngine(plan)

	// Sessions live in memory by default; Redis keeps them across
	// restarts and lets multiple instances share calls.
	var store ivr.SessionStore
	var memoryStore *ivr.MemoryStore
	switch cfg.IVRSessionBackend {
	case "redis":
		store = ivr.NewRedisStore(database.GetRedis(), cfg.IVRSessionTTL)
		logger.Log.Info("IVR sessions backed by redis")
	default:
		memoryStore = ivr.NewMemoryStore(cfg.IVRSessionTTL)
		store = memoryStore
	}

	service := ivr.NewService(ivr.NewMachine(engine), store)
	handler := ivr.NewHandler(service)

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
		if cfg.IVRSessionBackend == "redis" {
			if err := database.GetRedis().Ping(r.Context()).Err(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.IVRPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"addr":    address,
			"backend": cfg.IVRSessionBackend,
		}).Info("IVR service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start ivr service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down IVR service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("IVR service forced to shutdown")
	}

	if memoryStore != nil {
		memoryStore.Close()
	}
	if cfg.IVRSessionBackend == "redis" {
		if err := database.CloseRedis(); err != nil {
			logger.Log.WithError(err).Error("Failed to close redis")
		}
	}

	logger.Log.Info("IVR service stopped")
}

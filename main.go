package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"rafts/backend"
	"rafts/config"
	"rafts/history"
	"rafts/metrics"
	"rafts/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx := context.Background()
	b, err := backend.FromConfig(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Backend setup failed", zap.Error(err))
	}

	var store history.Store = history.NewMemoryStore()
	if cfg.DatabaseDSN != "" {
		gormStore, err := history.Open(cfg.DatabaseDSN)
		if err != nil {
			logging.Fatal("Failed to connect to history database", zap.Error(err))
		}
		store = gormStore
		logging.Info("Successfully connected to history database.")
	} else {
		logging.Info("DATABASE_DSN not set, keeping status history in memory")
	}

	reconciler := services.NewReconciler(b, logging, cfg.ReviewFetchConcurrency)
	workflow := services.NewWorkflow(reconciler, store, logging)
	router := newRouter(cfg, workflow, logging)

	// Setup Cron
	if cfg.ServiceToken != "" || cfg.Backend == "fixture" {
		cronScheduler := cron.New()
		refresh := func() { refreshReviewQueue(ctx, b, cfg.ServiceToken, logging) }
		if _, err := cronScheduler.AddFunc(cfg.RefreshSchedule, refresh); err != nil {
			logging.Fatal("Invalid REFRESH_SCHEDULE", zap.String("schedule", cfg.RefreshSchedule), zap.Error(err))
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
		go refresh()
	} else {
		logging.Info("SERVICE_TOKEN not set, review queue gauges are not refreshed")
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.Backend))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// refreshReviewQueue setzt die Gauges der Review-Buckets aus der aktuellen Registry-Liste.
func refreshReviewQueue(ctx context.Context, b backend.SubmissionBackend, token string, logging *zap.Logger) {
	ctx, cancel := context.WithTimeout(backend.WithAccessToken(ctx, token), 2*time.Minute)
	defer cancel()

	records, err := b.ListRecords(ctx)
	if err != nil {
		logging.Error("Review queue refresh failed", zap.Error(err))
		return
	}
	counts := services.CountByReviewStatus(records)
	for option, n := range counts {
		metrics.ReviewQueue.WithLabelValues(option).Set(float64(n))
	}
	logging.Info("Review queue refreshed", zap.Int("records", len(records)), zap.Any("counts", counts))
}

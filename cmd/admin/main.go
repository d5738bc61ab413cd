package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"matchday_notification_bot/internal/app"
	"matchday_notification_bot/internal/infra/config"
	idb "matchday_notification_bot/internal/infra/database"
	"matchday_notification_bot/internal/infra/httpadmin"
	"matchday_notification_bot/internal/infra/logger"
	"matchday_notification_bot/internal/infra/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}
	log := logger.Init(cfg)
	if err := cfg.ValidateAdmin(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := idb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not open database: %v", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	rec := metrics.NewCollector(reg)

	notifRepo := idb.NewNotificationRepository(db)
	container := app.NewAdminContainer(app.Stores{
		Subscribers: idb.NewSubscriberRepository(db),
		Access:      idb.NewAccessRepository(db),
		Queue:       notifRepo,
		Ledger:      notifRepo,
	}, log, rec)

	router := httpadmin.NewRouter(httpadmin.NewHandler(container.Admin, logger.Component("admin_api")), httpadmin.RouterConfig{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Metrics:  metrics.Handler(reg),
	})

	server := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.AdminAddr).Info("Admin API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Admin API failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down admin API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Admin API shutdown failed")
	}
	log.Info("Admin API stopped.")
}

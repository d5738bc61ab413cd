package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"matchday_notification_bot/internal/app"
	"matchday_notification_bot/internal/infra/config"
	idb "matchday_notification_bot/internal/infra/database"
	"matchday_notification_bot/internal/infra/logger"
	"matchday_notification_bot/internal/infra/matchdata"
	"matchday_notification_bot/internal/infra/metrics"
	"matchday_notification_bot/internal/infra/scheduler"
	"matchday_notification_bot/internal/infra/telegram"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const pollTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}
	log := logger.Init(cfg)
	if err := cfg.ValidateBot(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"timezone":    cfg.NotifyTimezone.String(),
		"window":      []int{cfg.NotifyStartHour, cfg.NotifyEndHour},
		"dialect":     idb.DialectFor(cfg.DatabaseURL),
	}).Info("Matchday notification bot starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := idb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not open database: %v", err)
	}
	defer db.Close()
	log.Info("Database ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	notifRepo := idb.NewNotificationRepository(db)
	stores := app.Stores{
		Subscribers: idb.NewSubscriberRepository(db),
		Access:      idb.NewAccessRepository(db),
		Queue:       notifRepo,
		Ledger:      notifRepo,
	}

	cache, err := matchdata.NewFileCache(cfg.CacheDir, matchdata.DefaultCacheRetention, logger.Component("match_cache"))
	if err != nil {
		log.Fatalf("Could not prepare match cache: %v", err)
	}
	footballClient := matchdata.NewClient(matchdata.ClientConfig{
		BaseURL:           cfg.FootballAPIURL,
		Token:             cfg.FootballAPIToken,
		Area:              cfg.FootballArea,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerMinute: cfg.FootballRequestsPerMinute,
	}, rec)
	lookup := matchdata.NewLookup(footballClient, cache, cfg.FootballCompetition, cfg.NotifyTimezone, logger.Component("match_lookup"), rec)

	httpTimeout := cfg.SendTimeout
	if httpTimeout <= pollTimeout {
		httpTimeout = pollTimeout + 5*time.Second
	}
	botLogger := logger.Component("telebot")
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
		Client: &http.Client{Timeout: httpTimeout},
		OnError: func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telegram handler error")
		},
	})
	if err != nil {
		log.Fatalf("Could not create Telegram bot: %v", err)
	}

	if err := telegram.EnsureExclusiveSession(ctx, bot, telegram.DefaultSessionAttempts, telegram.DefaultSessionDelay, botLogger); err != nil {
		log.Fatalf("Telegram session unavailable: %v", err)
	}

	adapter := telegram.NewTelebotAdapter(bot, botLogger)
	container := app.NewBotContainer(stores, lookup, adapter, adapter, app.BotConfig{
		Location:       cfg.NotifyTimezone,
		QueueBatchSize: cfg.QueueBatchSize,
	}, log, rec)

	telegram.RegisterBotCommands(bot, telegram.NewCommandHandlers(ctx, container.Subscribers, matchdata.KnownCity, cfg.NotifyStartHour, logger.Component("commands")))
	telegram.RegisterAdminHandlers(bot, telegram.NewAdminHandlers(ctx, container.Admin, cfg.AdminTelegramID, logger.Component("admin_commands")))

	notifScheduler := scheduler.NewNotificationScheduler(container.Notifications, scheduler.WindowConfig{
		Location:  cfg.NotifyTimezone,
		StartHour: cfg.NotifyStartHour,
		EndHour:   cfg.NotifyEndHour,
	}, logger.Component("scheduler"))
	notifScheduler.Start(ctx)

	maintenance := scheduler.NewMaintenanceScheduler(notifRepo, logger.Component("maintenance"), cfg.NotifyTimezone, cfg.CronSpecQueuePrune, cfg.QueueRetentionDays)
	if err := maintenance.Start(); err != nil {
		log.Fatalf("Could not start maintenance jobs: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		container.Dispatcher.Run(ctx)
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.SetupMetricsRoute(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.WithField("addr", cfg.MetricsAddr).Info("Metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	go bot.Start()
	log.Info("Application setup complete. Bot, scheduler and dispatcher are running.")
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.WithError(err).Warn("Could not notify service manager")
	} else if sent {
		log.Debug("Service manager notified of readiness")
	}

	<-ctx.Done()
	log.Info("Shutting down application...")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	bot.Stop()
	notifScheduler.Stop()
	wg.Wait()
	maintenance.Stop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	log.Info("Application shut down gracefully.")
}

package app

import (
	"time"

	"matchday_notification_bot/internal/domain/access"
	"matchday_notification_bot/internal/domain/match"
	"matchday_notification_bot/internal/domain/notification"
	"matchday_notification_bot/internal/domain/subscriber"
	"matchday_notification_bot/internal/domain/telegram"
	"matchday_notification_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// Stores groups the persistence ports a process needs.
type Stores struct {
	Subscribers subscriber.Repository
	Access      access.Repository
	Queue       notification.Queue
	Ledger      notification.Ledger
}

// Container is the application context built once per process and handed to
// the scheduler, the dispatcher and the admin API.
type Container struct {
	Gate          *AccessGate
	Mailbox       *Mailbox
	Admin         *AdminService
	Subscribers   *SubscriberService
	Notifications *NotificationServiceImpl
	Reconciler    *Reconciler
	Dispatcher    *QueueDispatcher
}

// NewAdminContainer wires the services of a process that does not own the
// Telegram session. It can only enqueue.
func NewAdminContainer(stores Stores, log *logrus.Logger, rec metrics.Recorder) *Container {
	gate := NewAccessGate(stores.Access)
	mailbox := NewMailbox(stores.Queue, log.WithField("component", "mailbox"), rec)
	return &Container{
		Gate:    gate,
		Mailbox: mailbox,
		Admin:   NewAdminService(stores.Subscribers, gate, mailbox),
	}
}

// BotConfig carries the bot-process settings the services need.
type BotConfig struct {
	Location       *time.Location
	QueueBatchSize int
}

// NewBotContainer wires every service of the transport-owning process.
func NewBotContainer(
	stores Stores,
	lookup match.Lookup,
	client telegram.Client,
	prober telegram.Prober,
	cfg BotConfig,
	log *logrus.Logger,
	rec metrics.Recorder,
) *Container {
	c := NewAdminContainer(stores, log, rec)
	c.Subscribers = NewSubscriberService(stores.Subscribers, c.Gate, lookup, cfg.Location)
	c.Notifications = NewNotificationServiceImpl(
		stores.Subscribers,
		stores.Ledger,
		c.Gate,
		lookup,
		c.Mailbox,
		cfg.Location,
		log.WithField("component", "notification_service"),
		rec,
	)
	c.Reconciler = NewReconciler(stores.Subscribers, stores.Queue, prober, log.WithField("component", "reconciler"), rec)
	c.Dispatcher = NewQueueDispatcher(stores.Queue, client, c.Reconciler, cfg.QueueBatchSize, log.WithField("component", "dispatcher"), rec)
	return c
}

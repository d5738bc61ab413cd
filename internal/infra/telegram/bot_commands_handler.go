// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"matchday_notification_bot/internal/app"
	idb "matchday_notification_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Registrar is the subset of *telebot.Bot used to register handlers.
type Registrar interface {
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
}

// CommandHandlers serves the subscriber-facing commands.
type CommandHandlers struct {
	ctx         context.Context
	subscribers *app.SubscriberService
	knownCity   func(string) bool
	startHour   int
	logger      *logrus.Entry
}

func NewCommandHandlers(ctx context.Context, subscribers *app.SubscriberService, knownCity func(string) bool, startHour int, logger *logrus.Entry) *CommandHandlers {
	return &CommandHandlers{
		ctx:         ctx,
		subscribers: subscribers,
		knownCity:   knownCity,
		startHour:   startHour,
		logger:      logger,
	}
}

// RegisterBotCommands wires /start, /setcity, /check and /help. Every
// command goes through the access gate.
func RegisterBotCommands(b Registrar, h *CommandHandlers) {
	b.Handle("/start", h.Start, h.RequireAccess)
	b.Handle("/setcity", h.SetCity, h.RequireAccess)
	b.Handle("/check", h.Check, h.RequireAccess)
	b.Handle("/help", h.Help, h.RequireAccess)
}

// RequireAccess rejects senders the access gate does not authorize.
func (h *CommandHandlers) RequireAccess(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		ok, err := h.subscribers.IsAuthorized(h.ctx, sender.ID)
		if err != nil {
			h.logger.WithError(err).WithField("sender_id", sender.ID).Error("Access check failed")
			return c.Send(textGenericError)
		}
		if !ok {
			h.logger.WithField("sender_id", sender.ID).Info("Unauthorized sender")
			return c.Send(textNoAccess)
		}
		return next(c)
	}
}

func (h *CommandHandlers) Start(c telebot.Context) error {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/start", "sender_id": c.Sender().ID})
	logCtx.Info("Processing /start command")

	sub, err := h.subscribers.Get(h.ctx, c.Sender().ID)
	if err == nil {
		return c.Send(fmt.Sprintf(textWelcomeBackFmt, sub.City))
	}
	if !errors.Is(err, idb.ErrSubscriberNotFound) {
		logCtx.WithError(err).Error("Error loading subscriber for /start command")
		return c.Send(textGenericError)
	}
	return c.Send(textWelcome)
}

func (h *CommandHandlers) SetCity(c telebot.Context) error {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/setcity", "sender_id": c.Sender().ID})

	city := strings.Join(c.Args(), " ")
	sub, err := h.subscribers.SetCity(h.ctx, c.Sender().ID, c.Sender().Username, city)
	if errors.Is(err, app.ErrEmptyCity) {
		return c.Send(textCityMissing)
	}
	if err != nil {
		logCtx.WithError(err).Error("Failed to save city")
		return c.Send(textGenericError)
	}
	logCtx.WithField("city", sub.City).Info("City updated")

	reply := fmt.Sprintf(textCitySetFmt, sub.City, h.startHour)
	if h.knownCity != nil && !h.knownCity(sub.City) {
		reply += "\n\n" + fmt.Sprintf(textCityUnknownFmt, sub.City)
	}
	return c.Send(reply)
}

func (h *CommandHandlers) Check(c telebot.Context) error {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/check", "sender_id": c.Sender().ID})

	sub, err := h.subscribers.Get(h.ctx, c.Sender().ID)
	if errors.Is(err, idb.ErrSubscriberNotFound) {
		return c.Send(textNeedCity)
	}
	if err != nil {
		logCtx.WithError(err).Error("Error loading subscriber for /check command")
		return c.Send(textGenericError)
	}
	return c.Send(h.subscribers.CheckToday(h.ctx, sub))
}

func (h *CommandHandlers) Help(c telebot.Context) error {
	return c.Send(fmt.Sprintf(textHelpFmt, h.startHour))
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"matchday_notification_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// AdminHandlers serves operator commands in the operator's private chat.
// They mirror the admin HTTP API and use the same service.
type AdminHandlers struct {
	ctx             context.Context
	adminService    *app.AdminService
	adminTelegramID int64
	logger          *logrus.Entry
}

func NewAdminHandlers(ctx context.Context, adminService *app.AdminService, adminTelegramID int64, logger *logrus.Entry) *AdminHandlers {
	return &AdminHandlers{
		ctx:             ctx,
		adminService:    adminService,
		adminTelegramID: adminTelegramID,
		logger:          logger,
	}
}

// RegisterAdminHandlers registers the operator commands. Nothing is
// registered when no operator id is configured.
func RegisterAdminHandlers(b Registrar, h *AdminHandlers) {
	if h.adminTelegramID == 0 {
		return
	}
	b.Handle("/access_mode", h.AccessMode, h.RequireAdmin)
	b.Handle("/access_add", h.AccessAdd, h.RequireAdmin)
	b.Handle("/access_remove", h.AccessRemove, h.RequireAdmin)
	b.Handle("/subscribers", h.ListSubscribers, h.RequireAdmin)
	b.Handle("/cleanup", h.Cleanup, h.RequireAdmin)
}

func (h *AdminHandlers) RequireAdmin(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if c.Sender() == nil || c.Sender().ID != h.adminTelegramID {
			h.logger.WithField("sender_id", senderID(c)).Warn("Unauthorized admin command attempt")
			return c.Send(textAdminOnly)
		}
		return next(c)
	}
}

// AccessMode shows the mode, or sets it when an argument is given.
func (h *AdminHandlers) AccessMode(c telebot.Context) error {
	args := c.Args()
	if len(args) == 0 {
		mode, err := h.adminService.AccessMode(h.ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to read access mode")
			return c.Send(textGenericError)
		}
		return c.Send(fmt.Sprintf(textAdminModeFmt, mode))
	}

	mode, err := h.adminService.SetAccessMode(h.ctx, args[0])
	if errors.Is(err, app.ErrInvalidAccessMode) {
		return c.Send(textAdminBadMode)
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to set access mode")
		return c.Send(textGenericError)
	}
	h.logger.WithField("mode", mode).Info("Access mode changed from chat")
	return c.Send(fmt.Sprintf(textAdminModeSetFmt, mode))
}

func (h *AdminHandlers) AccessAdd(c telebot.Context) error {
	return h.changeEntry(c, "/access_add", h.adminService.AddAccessEntry, textAdminAddedFmt)
}

func (h *AdminHandlers) AccessRemove(c telebot.Context) error {
	return h.changeEntry(c, "/access_remove", h.adminService.RemoveAccessEntry, textAdminRemovedFmt)
}

func (h *AdminHandlers) changeEntry(c telebot.Context, command string, apply func(context.Context, string, int64) error, okFmt string) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Send(fmt.Sprintf(textAdminEntryUsage, command))
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return c.Send(textAdminBadID)
	}

	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":       command,
		"mode":          args[0],
		"subscriber_id": id,
	})
	if err := apply(h.ctx, args[0], id); err != nil {
		if errors.Is(err, app.ErrInvalidAccessMode) {
			return c.Send(textAdminBadMode)
		}
		handlerLogger.WithError(err).Error("Failed to change access entry")
		return c.Send(textGenericError)
	}
	handlerLogger.Info("Access entry changed from chat")
	return c.Send(fmt.Sprintf(okFmt, id, strings.ToLower(args[0])))
}

func (h *AdminHandlers) ListSubscribers(c telebot.Context) error {
	subs, err := h.adminService.ListSubscribers(h.ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list subscribers")
		return c.Send(textGenericError)
	}
	if len(subs) == 0 {
		return c.Send(textAdminNoSubs)
	}

	lines := make([]string, 0, len(subs))
	for _, s := range subs {
		name := s.Username
		if name == "" {
			name = "-"
		}
		status := "✅"
		if !s.Authorized {
			status = "⛔️"
		}
		lines = append(lines, fmt.Sprintf("%s %d @%s – %s", status, s.ID, name, s.City))
	}
	for _, chunk := range splitMessage(lines, maxMessageRunes) {
		if err := c.Send(chunk); err != nil {
			return err
		}
	}
	return nil
}

// maxMessageRunes stays below Telegram's 4096 character limit per message.
const maxMessageRunes = 4000

// splitMessage packs lines into newline-joined chunks of at most limit runes.
// A single line over the limit is truncated.
func splitMessage(lines []string, limit int) []string {
	var (
		chunks []string
		b      strings.Builder
		size   int
	)
	for _, line := range lines {
		if r := []rune(line); len(r) > limit {
			line = string(r[:limit-1]) + "…"
		}
		n := utf8.RuneCountInString(line)
		if size > 0 && size+1+n > limit {
			chunks = append(chunks, b.String())
			b.Reset()
			size = 0
		}
		if size > 0 {
			b.WriteByte('\n')
			size++
		}
		b.WriteString(line)
		size += n
	}
	if size > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

func (h *AdminHandlers) Cleanup(c telebot.Context) error {
	if err := h.adminService.RequestCleanup(h.ctx); err != nil {
		h.logger.WithError(err).Error("Failed to queue cleanup")
		return c.Send(textGenericError)
	}
	return c.Send(textAdminCleanup)
}

func senderID(c telebot.Context) int64 {
	if c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"matchday_notification_bot/internal/app"
	"matchday_notification_bot/internal/domain/match"
	"matchday_notification_bot/internal/domain/subscriber"
	"matchday_notification_bot/internal/infra/database"
	"matchday_notification_bot/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

// fakeContext records replies; every other telebot.Context method is unused.
type fakeContext struct {
	telebot.Context
	sender  *telebot.User
	args    []string
	replies []string
}

func (f *fakeContext) Sender() *telebot.User { return f.sender }
func (f *fakeContext) Args() []string        { return f.args }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.replies = append(f.replies, fmt.Sprint(what))
	return nil
}

func (f *fakeContext) lastReply() string {
	if len(f.replies) == 0 {
		return ""
	}
	return f.replies[len(f.replies)-1]
}

func newCtx(id int64, args ...string) *fakeContext {
	return &fakeContext{sender: &telebot.User{ID: id, Username: "tifoso"}, args: args}
}

type staticLookup struct{ res match.Result }

func (s staticLookup) MatchesForCity(context.Context, string, time.Time) match.Result { return s.res }

type handlerEnv struct {
	commands *CommandHandlers
	admin    *AdminHandlers
	gate     *app.AccessGate
	subs     *database.SubscriberRepository
	queue    *database.NotificationRepository
}

func newHandlerEnv(t *testing.T, lookup match.Lookup) *handlerEnv {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "bot.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	subs := database.NewSubscriberRepository(db)
	queue := database.NewNotificationRepository(db)
	gate := app.NewAccessGate(database.NewAccessRepository(db))
	box := app.NewMailbox(queue, logger.Discard(), nil)
	svc := app.NewSubscriberService(subs, gate, lookup, time.UTC)
	known := func(city string) bool { return city == "Roma" }

	return &handlerEnv{
		commands: NewCommandHandlers(ctx, svc, known, 7, logger.Discard()),
		admin:    NewAdminHandlers(ctx, app.NewAdminService(subs, gate, box), 99, logger.Discard()),
		gate:     gate,
		subs:     subs,
		queue:    queue,
	}
}

func TestCommands_StartSetCityCheck(t *testing.T) {
	lookup := staticLookup{res: match.FromMatches([]match.Match{{
		HomeTeam: "Roma", AwayTeam: "Lazio", Kickoff: time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC),
	}})}
	env := newHandlerEnv(t, lookup)
	h := env.commands

	c := newCtx(42)
	require.NoError(t, h.Start(c))
	assert.Equal(t, textWelcome, c.lastReply())

	c = newCtx(42)
	require.NoError(t, h.Check(c))
	assert.Equal(t, textNeedCity, c.lastReply())

	c = newCtx(42)
	require.NoError(t, h.SetCity(c))
	assert.Equal(t, textCityMissing, c.lastReply())

	c = newCtx(42, "Roma")
	require.NoError(t, h.SetCity(c))
	assert.Equal(t, fmt.Sprintf(textCitySetFmt, "Roma", 7), c.lastReply())

	c = newCtx(42)
	require.NoError(t, h.Start(c))
	assert.Contains(t, c.lastReply(), "Bentornato")

	c = newCtx(42)
	require.NoError(t, h.Check(c))
	assert.Contains(t, c.lastReply(), "Roma vs Lazio")
}

func TestCommands_SetCityWarnsOnUnknownCity(t *testing.T) {
	env := newHandlerEnv(t, staticLookup{})
	c := newCtx(1, "Reggio", "Calabria")

	require.NoError(t, env.commands.SetCity(c))
	assert.Contains(t, c.lastReply(), "Reggio Calabria")
	assert.Contains(t, c.lastReply(), "Attenzione")
}

func TestCommands_RequireAccess(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t, staticLookup{})
	called := false
	next := func(telebot.Context) error { called = true; return nil }
	guarded := env.commands.RequireAccess(next)

	require.NoError(t, env.gate.Add(ctx, "denylist", 13))
	c := newCtx(13)
	require.NoError(t, guarded(c))
	assert.False(t, called)
	assert.Equal(t, textNoAccess, c.lastReply())

	require.NoError(t, guarded(newCtx(14)))
	assert.True(t, called)
}

func TestAdminHandlers(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t, staticLookup{})
	h := env.admin

	c := newCtx(1, "allowlist")
	require.NoError(t, h.RequireAdmin(h.AccessMode)(c))
	assert.Equal(t, textAdminOnly, c.lastReply())

	c = newCtx(99, "whitelist")
	require.NoError(t, h.RequireAdmin(h.AccessMode)(c))
	assert.Equal(t, fmt.Sprintf(textAdminModeSetFmt, "allowlist"), c.lastReply())

	c = newCtx(99, "sometimes")
	require.NoError(t, h.AccessMode(c))
	assert.Equal(t, textAdminBadMode, c.lastReply())

	c = newCtx(99, "allowlist", "abc")
	require.NoError(t, h.AccessAdd(c))
	assert.Equal(t, textAdminBadID, c.lastReply())

	c = newCtx(99, "allowlist", "7")
	require.NoError(t, h.AccessAdd(c))
	ok, err := env.gate.IsAuthorized(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	c = newCtx(99, "allowlist", "7")
	require.NoError(t, h.AccessRemove(c))
	ok, err = env.gate.IsAuthorized(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	c = newCtx(99)
	require.NoError(t, h.Cleanup(c))
	assert.Equal(t, textAdminCleanup, c.lastReply())
	pending, err := env.queue.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	_, isOp := pending[0].AdminOperation()
	assert.True(t, isOp)
}

type fakeMessenger struct {
	sendErr   error
	deleteErr error
	sent      []*telebot.SendOptions
	deleted   int
}

func (f *fakeMessenger) Send(_ telebot.Recipient, _ interface{}, opts ...interface{}) (*telebot.Message, error) {
	if len(opts) > 0 {
		if o, ok := opts[0].(*telebot.SendOptions); ok {
			f.sent = append(f.sent, o)
		}
	}
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &telebot.Message{ID: 1, Chat: &telebot.Chat{ID: 5}}, nil
}

func (f *fakeMessenger) Delete(telebot.Editable) error {
	f.deleted++
	return f.deleteErr
}

func TestTelebotAdapter_Probe(t *testing.T) {
	m := &fakeMessenger{}
	a := NewTelebotAdapter(m, logger.Discard())

	require.NoError(t, a.Probe(context.Background(), 5))
	require.Len(t, m.sent, 1)
	assert.True(t, m.sent[0].DisableNotification)
	assert.Equal(t, 1, m.deleted)

	m.deleteErr = errors.New("message can't be deleted")
	assert.NoError(t, a.Probe(context.Background(), 5), "a failed delete does not fail the probe")

	m.sendErr = errors.New("telegram: Forbidden: bot was blocked by the user (403)")
	err := a.Probe(context.Background(), 5)
	assert.Equal(t, m.sendErr, err)
}

func TestTelebotAdapter_SendHonoursCancelledContext(t *testing.T) {
	m := &fakeMessenger{}
	a := NewTelebotAdapter(m, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, a.SendMessage(ctx, 5, "hi"), context.Canceled)
	assert.Empty(t, m.sent)
}

type fakeRawer struct {
	errs  []error
	calls int
}

func (f *fakeRawer) Raw(method string, _ interface{}) ([]byte, error) {
	f.calls++
	if method != "getUpdates" {
		return nil, errors.New("unexpected method " + method)
	}
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return []byte(`{"ok":true,"result":[]}`), nil
}

func TestEnsureExclusiveSession(t *testing.T) {
	conflict := errors.New("telegram: Conflict: terminated by other getUpdates request; make sure that only one bot instance is running (409)")

	t.Run("free", func(t *testing.T) {
		r := &fakeRawer{}
		require.NoError(t, EnsureExclusiveSession(context.Background(), r, 3, time.Millisecond, logger.Discard()))
		assert.Equal(t, 1, r.calls)
	})

	t.Run("released after retry", func(t *testing.T) {
		r := &fakeRawer{errs: []error{conflict}}
		require.NoError(t, EnsureExclusiveSession(context.Background(), r, 3, time.Millisecond, logger.Discard()))
		assert.Equal(t, 2, r.calls)
	})

	t.Run("held", func(t *testing.T) {
		r := &fakeRawer{errs: []error{conflict, conflict, conflict, conflict}}
		err := EnsureExclusiveSession(context.Background(), r, 3, time.Millisecond, logger.Discard())
		assert.ErrorIs(t, err, ErrSessionBusy)
		assert.Equal(t, 3, r.calls)
	})

	t.Run("other error", func(t *testing.T) {
		r := &fakeRawer{errs: []error{errors.New("dial tcp: i/o timeout"), errors.New("dial tcp: i/o timeout"), errors.New("dial tcp: i/o timeout")}}
		err := EnsureExclusiveSession(context.Background(), r, 3, time.Millisecond, logger.Discard())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSessionBusy)
	})
}

func TestAdminHandlers_LongSubscriberListIsSplit(t *testing.T) {
	ctx := context.Background()
	env := newHandlerEnv(t, staticLookup{})

	const total = 300
	for i := 0; i < total; i++ {
		require.NoError(t, env.subs.Upsert(ctx, &subscriber.Subscriber{
			ID:        int64(1000000 + i),
			Username:  sql.NullString{String: "tifoso_appassionato_della_curva", Valid: true},
			City:      "Reggio nell'Emilia",
			CreatedAt: time.Now(),
		}))
	}

	c := newCtx(99)
	require.NoError(t, env.admin.ListSubscribers(c))
	require.Greater(t, len(c.replies), 1)

	lines := 0
	for _, reply := range c.replies {
		assert.LessOrEqual(t, utf8.RuneCountInString(reply), maxMessageRunes)
		lines += len(strings.Split(reply, "\n"))
	}
	assert.Equal(t, total, lines, "every subscriber is listed exactly once")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"ab\ncd", "ef"}, splitMessage([]string{"ab", "cd", "ef"}, 5))
	assert.Equal(t, []string{"abc…"}, splitMessage([]string{"abcdefgh"}, 4))
	assert.Empty(t, splitMessage(nil, 10))
}

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"matchday_notification_bot/internal/domain/match"
	"matchday_notification_bot/internal/domain/subscriber"
	"matchday_notification_bot/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotificationService(t *testing.T, env *testEnv, lookup match.Lookup) *NotificationServiceImpl {
	t.Helper()
	return NewNotificationServiceImpl(env.subs, env.notif, env.gate, lookup, env.box, romeLoc(t), logger.Discard(), nil)
}

func romeLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	return loc
}

func TestRunBatch_SendsOncePerDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	loc := romeLoc(t)
	at0805 := time.Date(2025, 3, 9, 8, 5, 0, 0, loc)

	env.addSubscriber(t, 42, "Milano")
	require.NoError(t, env.subs.UpdateLastAutoNotified(ctx, 42, at0805.AddDate(0, 0, -1)))

	lookup := &fakeLookup{}
	lookup.set("milano", match.FromMatches([]match.Match{
		sampleMatch("Inter", "Juventus", time.Date(2025, 3, 9, 19, 45, 0, 0, time.UTC)),
	}))
	svc := newTestNotificationService(t, env, lookup)

	report, err := svc.RunBatch(ctx, at0805)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Total: 1, Sent: 1}, report)

	pending, err := env.notif.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(42), pending[0].SubscriberID)
	assert.Contains(t, pending[0].Body, "Inter vs Juventus")
	assert.Contains(t, pending[0].Body, "20:45")

	sub, err := env.subs.GetByID(ctx, 42)
	require.NoError(t, err)
	require.True(t, sub.LastAutoNotifiedAt.Valid)
	assert.True(t, sub.LastAutoNotifiedAt.Time.Equal(at0805))

	ran, err := svc.RanOn(ctx, at0805)
	require.NoError(t, err)
	assert.True(t, ran)

	// Second tick the same morning.
	at0820 := at0805.Add(15 * time.Minute)
	report, err = svc.RunBatch(ctx, at0820)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 1, report.Skipped)

	pending, err = env.notif.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "no duplicate notification on the same day")

	sub, err = env.subs.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, sub.LastAutoNotifiedAt.Time.Equal(at0805), "timestamp must stay untouched")

	// Next day the subscriber is eligible again.
	report, err = svc.RunBatch(ctx, at0805.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
}

func TestRunBatch_FetchFailureLeavesDayOpen(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	loc := romeLoc(t)
	at0805 := time.Date(2025, 3, 9, 8, 5, 0, 0, loc)

	env.addSubscriber(t, 42, "Milano")
	lookup := &fakeLookup{}
	lookup.set("milano", match.Failed(errors.New("upstream 503")))
	svc := newTestNotificationService(t, env, lookup)

	report, err := svc.RunBatch(ctx, at0805)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Total: 1, Errors: 1}, report)
	assert.False(t, report.Productive())

	ran, err := svc.RanOn(ctx, at0805)
	require.NoError(t, err)
	assert.False(t, ran, "a failed fetch must not close the day")

	sub, err := env.subs.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, sub.LastAutoNotifiedAt.Valid)

	// The 08:20 retry succeeds.
	lookup.set("milano", match.FromMatches([]match.Match{
		sampleMatch("Milan", "Roma", time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC)),
	}))
	report, err = svc.RunBatch(ctx, at0805.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)

	ran, err = svc.RanOn(ctx, at0805)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRunBatch_UpstreamOutageFetchesOncePerBatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Date(2025, 3, 9, 8, 5, 0, 0, romeLoc(t))

	lookup := &fakeLookup{}
	for i, city := range []string{"Milano", "Roma", "Napoli", "Torino"} {
		env.addSubscriber(t, int64(i+1), city)
		lookup.set(subscriber.NormalizeCity(city), match.Failed(errors.New("upstream timeout")))
	}
	svc := newTestNotificationService(t, env, lookup)

	report, err := svc.RunBatch(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Total: 4, Errors: 4}, report)
	assert.Equal(t, 1, lookup.calls, "one failed fetch answers the whole batch")

	// The next tick tries the upstream again.
	_, err = svc.RunBatch(ctx, now.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.calls)
}

func TestRunBatch_NoMatchesClosesDayWithoutStampingSubscriber(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Date(2025, 3, 9, 8, 5, 0, 0, romeLoc(t))

	env.addSubscriber(t, 1, "Bergamo")
	svc := newTestNotificationService(t, env, &fakeLookup{})

	report, err := svc.RunBatch(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Total: 1, NoMatches: 1}, report)

	sub, err := env.subs.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, sub.LastAutoNotifiedAt.Valid)

	ran, err := svc.RanOn(ctx, now)
	require.NoError(t, err)
	assert.True(t, ran)

	pending, err := env.notif.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunBatch_SkipsBlockedAndUnauthorized(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := time.Date(2025, 3, 9, 8, 5, 0, 0, romeLoc(t))

	env.addSubscriber(t, 1, "Milano")
	env.addSubscriber(t, 2, "Milano")
	env.addSubscriber(t, 3, "Milano")
	require.NoError(t, env.subs.SetBlocked(ctx, 1, true))
	require.NoError(t, env.gate.Add(ctx, "denylist", 2))

	lookup := &fakeLookup{}
	lookup.set("milano", match.FromMatches([]match.Match{
		sampleMatch("Inter", "Lecce", time.Date(2025, 3, 9, 14, 0, 0, 0, time.UTC)),
	}))
	svc := newTestNotificationService(t, env, lookup)

	report, err := svc.RunBatch(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Total: 3, Sent: 1, Skipped: 2}, report)
	assert.Equal(t, 1, lookup.calls, "skipped subscribers are never looked up")

	pending, err := env.notif.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(3), pending[0].SubscriberID)
}

func TestRunBatch_EmptySubscriberList(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestNotificationService(t, env, &fakeLookup{})
	now := time.Date(2025, 3, 9, 8, 5, 0, 0, romeLoc(t))

	report, err := svc.RunBatch(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{}, report)

	ran, err := svc.RanOn(context.Background(), now)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestFormatMatches(t *testing.T) {
	loc := romeLoc(t)

	assert.Equal(t, noMatchesText, FormatMatches(nil, loc))

	msg := FormatMatches([]match.Match{
		sampleMatch("Roma", "Lazio", time.Date(2025, 3, 9, 19, 45, 0, 0, time.UTC)),
		{HomeTeam: "Lazio", AwayTeam: "Como", Kickoff: time.Date(2025, 3, 9, 11, 30, 0, 0, time.UTC)},
	}, loc)
	assert.Equal(t, "🎯 Oggi nella tua città ci sono le seguenti partite:\n\n"+
		"⚽️ Roma vs Lazio\n🏟 Stadio\n🕒 20:45\n\n"+
		"⚽️ Lazio vs Como\n🕒 12:30", msg)

	assert.Contains(t, FormatLookup(match.Failed(errors.New("x")), loc), "Riprova")
}

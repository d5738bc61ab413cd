package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"matchday_notification_bot/internal/domain/match"
	"matchday_notification_bot/internal/domain/subscriber"
	"matchday_notification_bot/internal/infra/database"
	"matchday_notification_bot/internal/infra/logger"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db    *database.DB
	subs  *database.SubscriberRepository
	acc   *database.AccessRepository
	notif *database.NotificationRepository
	gate  *AccessGate
	box   *Mailbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "bot.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:    db,
		subs:  database.NewSubscriberRepository(db),
		acc:   database.NewAccessRepository(db),
		notif: database.NewNotificationRepository(db),
	}
	env.gate = NewAccessGate(env.acc)
	env.box = NewMailbox(env.notif, logger.Discard(), nil)
	return env
}

func (e *testEnv) addSubscriber(t *testing.T, id int64, city string) {
	t.Helper()
	require.NoError(t, e.subs.Upsert(context.Background(), &subscriber.Subscriber{
		ID:        id,
		City:      city,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
}

// fakeLookup returns a canned result per normalized city and counts calls.
type fakeLookup struct {
	mu      sync.Mutex
	results map[string]match.Result
	calls   int
}

func (f *fakeLookup) MatchesForCity(_ context.Context, city string, _ time.Time) match.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if res, ok := f.results[subscriber.NormalizeCity(city)]; ok {
		return res
	}
	return match.FromMatches(nil)
}

func (f *fakeLookup) set(city string, res match.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.results == nil {
		f.results = map[string]match.Result{}
	}
	f.results[city] = res
}

// fakeTransport implements telegram.Client and telegram.Prober.
type fakeTransport struct {
	mu       sync.Mutex
	sent     map[int64][]string
	failures map[int64]error
	probes   []int64
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: map[int64][]string{}, failures: map[int64]error{}}
}

func (f *fakeTransport) SendMessage(_ context.Context, id int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[id]; err != nil {
		return err
	}
	f.sent[id] = append(f.sent[id], text)
	return nil
}

func (f *fakeTransport) Probe(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, id)
	return f.failures[id]
}

func (f *fakeTransport) fail(id int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[id] = err
}

func (f *fakeTransport) sentTo(id int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[id]...)
}

var errTimeout = errors.New("telegram: Post \"https://api.telegram.org/bot/sendMessage\": context deadline exceeded")

var errBlocked = errors.New("telegram: Forbidden: bot was blocked by the user (403)")

func sampleMatch(home, away string, kickoff time.Time) match.Match {
	return match.Match{
		Competition: "SA",
		HomeTeam:    home,
		AwayTeam:    away,
		Kickoff:     kickoff,
		Venue:       "Stadio",
		Status:      "TIMED",
	}
}

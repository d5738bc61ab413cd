package httpadmin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"matchday_notification_bot/internal/app"
	"matchday_notification_bot/internal/domain/subscriber"
	"matchday_notification_bot/internal/infra/database"
	"matchday_notification_bot/internal/infra/logger"
	"matchday_notification_bot/internal/infra/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	server *httptest.Server
	subs   *database.SubscriberRepository
	queue  *database.NotificationRepository
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "admin.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	rec := metrics.NewCollector(reg)
	stores := app.Stores{
		Subscribers: database.NewSubscriberRepository(db),
		Access:      database.NewAccessRepository(db),
		Queue:       database.NewNotificationRepository(db),
		Ledger:      database.NewNotificationRepository(db),
	}
	c := app.NewAdminContainer(stores, logger.Discard().Logger, rec)

	router := NewRouter(NewHandler(c.Admin, logger.Discard()), RouterConfig{
		Username: "admin",
		Password: "secret",
		Metrics:  metrics.Handler(reg),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &apiEnv{
		server: srv,
		subs:   stores.Subscribers.(*database.SubscriberRepository),
		queue:  stores.Queue.(*database.NotificationRepository),
	}
}

func (e *apiEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_RequiresBasicAuth(t *testing.T) {
	env := newAPIEnv(t)

	resp, err := http.Get(env.server.URL + "/api/subscribers")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	health, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestRouter_AccessMode(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, http.MethodGet, "/api/access/mode", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got modeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "denylist", string(got.Mode))

	resp = env.do(t, http.MethodPut, "/api/access/mode", `{"mode":"whitelist"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "allowlist", string(got.Mode))

	resp = env.do(t, http.MethodPut, "/api/access/mode", `{"mode":"open"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/access/mode", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_AccessEntriesAndSubscribers(t *testing.T) {
	env := newAPIEnv(t)
	require.NoError(t, env.subs.Upsert(context.Background(), &subscriber.Subscriber{ID: 7, City: "Roma", CreatedAt: time.Now()}))

	resp := env.do(t, http.MethodPut, "/api/access/mode", `{"mode":"allowlist"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []app.SubscriberView
	resp = env.do(t, http.MethodGet, "/api/subscribers", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.False(t, views[0].Authorized)

	resp = env.do(t, http.MethodPost, "/api/access/allowlist/7", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/subscribers", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	assert.True(t, views[0].Authorized)

	resp = env.do(t, http.MethodDelete, "/api/access/allowlist/7", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/access/greylist/7", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/access/allowlist/seven", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_BlockUnblock(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	require.NoError(t, env.subs.Upsert(ctx, &subscriber.Subscriber{ID: 3, City: "Napoli", CreatedAt: time.Now()}))

	resp := env.do(t, http.MethodPost, "/api/subscribers/3/block", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	sub, err := env.subs.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.True(t, sub.IsBlocked)

	resp = env.do(t, http.MethodDelete, "/api/subscribers/3/block", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	sub, err = env.subs.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.False(t, sub.IsBlocked)

	resp = env.do(t, http.MethodPost, "/api/subscribers/404/block", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_MessagesAndCleanupAreQueued(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	resp := env.do(t, http.MethodPost, "/api/messages", `{"subscriber_id": 5, "text": "Ciao!"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/messages", `{"subscriber_id": 5, "text": ""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr apiError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "VALIDATION_FAILED", apiErr.Code)

	resp = env.do(t, http.MethodPost, "/api/messages", `{"text": "senza destinatario"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/messages", `{"subscriber_id": 5, "text": "   "}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	apiErr = apiError{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "INVALID_MESSAGE", apiErr.Code)

	resp = env.do(t, http.MethodPost, "/api/maintenance/cleanup", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	pending, err := env.queue.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Ciao!", pending[0].Body)
	_, isOp := pending[1].AdminOperation()
	assert.True(t, isOp)

	resp = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

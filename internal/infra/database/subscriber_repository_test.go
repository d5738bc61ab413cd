package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"matchday_notification_bot/internal/domain/subscriber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository(openTestDB(t))

	s := &subscriber.Subscriber{ID: 42, Username: sql.NullString{String: "mario", Valid: true}, City: "Roma"}
	require.NoError(t, repo.Upsert(ctx, s))

	got, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Roma", got.City)
	assert.Equal(t, "mario", got.Username.String)
	assert.False(t, got.IsBlocked)
	assert.False(t, got.LastAutoNotifiedAt.Valid)

	created := got.CreatedAt
	require.NoError(t, repo.Upsert(ctx, &subscriber.Subscriber{ID: 42, City: "Milano"}))

	got, err = repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Milano", got.City)
	assert.False(t, got.Username.Valid)
	assert.Equal(t, created.UnixMilli(), got.CreatedAt.UnixMilli(), "creation time survives updates")
}

func TestSubscriberRepository_GetByID_NotFound(t *testing.T) {
	repo := NewSubscriberRepository(openTestDB(t))

	_, err := repo.GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestSubscriberRepository_Timestamps(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository(openTestDB(t))
	require.NoError(t, repo.Upsert(ctx, &subscriber.Subscriber{ID: 1, City: "Torino"}))

	auto := time.Date(2025, 2, 14, 8, 5, 0, 0, time.UTC)
	manual := auto.Add(time.Hour)
	require.NoError(t, repo.UpdateLastAutoNotified(ctx, 1, auto))
	require.NoError(t, repo.UpdateLastManualNotified(ctx, 1, manual))
	require.NoError(t, repo.SetBlocked(ctx, 1, true))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.IsBlocked)
	assert.True(t, got.LastAutoNotifiedAt.Time.Equal(auto))
	assert.True(t, got.LastManualNotifiedAt.Time.Equal(manual))

	assert.ErrorIs(t, repo.SetBlocked(ctx, 999, true), ErrSubscriberNotFound)
}

func TestSubscriberRepository_DeleteMany(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriberRepository(openTestDB(t))
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, repo.Upsert(ctx, &subscriber.Subscriber{ID: id, City: "Napoli"}))
	}

	removed, err := repo.DeleteMany(ctx, []int64{1, 3, 99})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].ID)

	removed, err = repo.DeleteMany(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

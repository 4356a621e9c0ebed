package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhosh101066/sync-player/internal/repository/snapshot"
	snapshotRedis "github.com/santhosh101066/sync-player/internal/repository/snapshot/redis"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLoadWithoutSnapshot(t *testing.T) {
	repo := snapshotRedis.NewRepo(newClient(t), "")

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, snapshot.ErrNoSnapshot)
}

func TestSaveAndLoad(t *testing.T) {
	repo := snapshotRedis.NewRepo(newClient(t), "test:room-state")
	ctx := context.Background()

	state := &snapshot.RoomState{
		AreUserControlsAllowed: true,
		CurrentVideoState: snapshot.PlayerState{
			URL:       "https://v/1",
			Time:      12.5,
			Paused:    false,
			Timestamp: 1700000000000,
		},
		VideoQueue: []snapshot.QueueItem{
			{Id: "q1", URL: "https://v/2", Title: "next up", AddedById: "m1", AddedAt: 1700000000001},
		},
		CurrentQueueIndex: 0,
	}
	require.NoError(t, repo.Save(ctx, state))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestSaveOverwrites(t *testing.T) {
	repo := snapshotRedis.NewRepo(newClient(t), "")
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &snapshot.RoomState{CurrentQueueIndex: 3}))
	require.NoError(t, repo.Save(ctx, &snapshot.RoomState{CurrentQueueIndex: -1}))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, -1, loaded.CurrentQueueIndex)
}

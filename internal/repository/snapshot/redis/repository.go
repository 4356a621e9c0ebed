package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/santhosh101066/sync-player/internal/repository/snapshot"
)

const defaultKey = "sync-player:room-state"

// repo stores the room snapshot as one JSON string under a single key. The
// snapshot is advisory restart-recovery data, not a transaction log, so a
// plain SET with last-writer-wins is enough.
type repo struct {
	rc  *redis.Client
	key string
}

func NewRepo(rc *redis.Client, key string) *repo {
	if key == "" {
		key = defaultKey
	}

	return &repo{rc: rc, key: key}
}

func (r *repo) Save(ctx context.Context, state *snapshot.RoomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal room state: %w", err)
	}

	if err := r.rc.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to set room state: %w", err)
	}

	return nil
}

func (r *repo) Load(ctx context.Context) (*snapshot.RoomState, error) {
	raw, err := r.rc.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, snapshot.ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to get room state: %w", err)
	}

	var state snapshot.RoomState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room state: %w", err)
	}

	return &state, nil
}

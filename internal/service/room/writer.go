package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh101066/sync-player/internal/repository/snapshot"
)

const defaultSnapshotInterval = 2 * time.Second

// snapshotWriter decouples persistence from message processing. Mutations
// schedule the latest state copy; a timer goroutine flushes it with
// last-writer-wins semantics. The snapshot is advisory recovery data, so a
// write error is logged and dropped, never surfaced to connections.
type snapshotWriter struct {
	store    iSnapshotStore
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	pending *snapshot.RoomState

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newSnapshotWriter(store iSnapshotStore, interval time.Duration, logger *slog.Logger) *snapshotWriter {
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}

	w := snapshotWriter{
		store:    store,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()

	return &w
}

func (w *snapshotWriter) Schedule(state *snapshot.RoomState) {
	w.mu.Lock()
	w.pending = state
	w.mu.Unlock()
}

func (w *snapshotWriter) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(context.Background())
		case <-w.stop:
			return
		}
	}
}

func (w *snapshotWriter) flush(ctx context.Context) {
	w.mu.Lock()
	state := w.pending
	w.pending = nil
	w.mu.Unlock()

	if state == nil {
		return
	}

	if err := w.store.Save(ctx, state); err != nil {
		w.logger.ErrorContext(ctx, "failed to save snapshot", "error", err)
	}
}

// Close stops the timer and flushes whatever is still pending. Safe to call
// more than once.
func (w *snapshotWriter) Close(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
	w.flush(ctx)

	return nil
}

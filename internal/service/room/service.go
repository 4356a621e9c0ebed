package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/santhosh101066/sync-player/internal/repository/identity"
	"github.com/santhosh101066/sync-player/internal/repository/session"
	"github.com/santhosh101066/sync-player/internal/repository/snapshot"
)

var (
	ErrPermissionDenied  = errors.New("permission denied")
	ErrMemberNotFound    = errors.New("member not found")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrDevAuthRejected   = errors.New("dev auth rejected")
	ErrQueueItemNotFound = errors.New("queue item not found")
	ErrInvalidIndex      = errors.New("invalid queue index")
)

type iSessionRepo interface {
	Add(*websocket.Conn, *session.Session) error
	RemoveByConn(*websocket.Conn) (*session.Session, error)
	GetByConn(*websocket.Conn) (session.Session, error)
	GetConnByMemberId(string) (*websocket.Conn, error)
	Promote(*websocket.Conn, *session.Session) error
	UpdateIsMuted(string, bool) error
	UpdateIsReady(string, bool) error
	ResetIsReady()
	List() []session.Session
	Conns() []*websocket.Conn
	ConnsExcept(*websocket.Conn) []*websocket.Conn
	AddVoiceConn(string, *websocket.Conn) error
	RemoveVoiceConn(*websocket.Conn) (string, error)
	VoiceOwnerByConn(*websocket.Conn) (session.Session, error)
	VoiceConnsExcept(*websocket.Conn) []*websocket.Conn
}

type iSnapshotStore interface {
	Save(context.Context, *snapshot.RoomState) error
	Load(context.Context) (*snapshot.RoomState, error)
}

type iIdentityVerifier interface {
	Verify(ctx context.Context, token string) (identity.Claim, error)
}

type Config struct {
	AdminEmail       string
	DevAuthEnabled   bool
	HistorySize      int
	SnapshotInterval time.Duration
}

// roomState is the single authoritative shared state. Only touched while
// holding service.mu.
type roomState struct {
	userControlsAllowed bool
	proxyEnabled        bool
	player              Player
	queue               []QueueItem
	currentIndex        int
}

type service struct {
	sessionRepo iSessionRepo
	verifier    iIdentityVerifier
	writer      *snapshotWriter
	logger      *slog.Logger

	adminEmail     string
	devAuthEnabled bool

	mu      sync.Mutex
	state   roomState
	history *chatHistory
}

// NewService loads the persisted room state, applies the restart
// normalization and starts the debounced snapshot writer. The recovery policy
// is deliberate: the player always comes back paused at the persisted
// position, because every client has to re-buffer after a restart; only the
// wall-clock stamp is reset so later extrapolation math starts from boot.
func NewService(ctx context.Context, sessionRepo iSessionRepo, store iSnapshotStore, verifier iIdentityVerifier, cfg *Config, logger *slog.Logger) (*service, error) {
	historySize := cfg.HistorySize
	if historySize <= 0 {
		historySize = 50
	}

	s := service{
		sessionRepo:    sessionRepo,
		verifier:       verifier,
		logger:         logger,
		adminEmail:     cfg.AdminEmail,
		devAuthEnabled: cfg.DevAuthEnabled,
		history:        newChatHistory(historySize),
		state: roomState{
			currentIndex: -1,
		},
	}

	persisted, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNoSnapshot) {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		logger.InfoContext(ctx, "no snapshot found, starting with empty room state")
	} else {
		s.state = roomState{
			userControlsAllowed: persisted.AreUserControlsAllowed,
			proxyEnabled:        persisted.IsProxyEnabled,
			player: Player{
				URL:       persisted.CurrentVideoState.URL,
				Time:      persisted.CurrentVideoState.Time,
				Paused:    true,
				Timestamp: nowMillis(),
			},
			queue:        queueFromSnapshot(persisted.VideoQueue),
			currentIndex: persisted.CurrentQueueIndex,
		}
		logger.InfoContext(ctx, "room state recovered",
			"url", persisted.CurrentVideoState.URL,
			"queue_length", len(persisted.VideoQueue),
			"was_paused", persisted.CurrentVideoState.Paused,
		)
	}

	s.writer = newSnapshotWriter(store, cfg.SnapshotInterval, logger)

	return &s, nil
}

// Close flushes any pending snapshot and stops the writer.
func (s *service) Close(ctx context.Context) error {
	return s.writer.Close(ctx)
}

// persistLocked hands a copy of the current state to the snapshot writer.
// Caller must hold s.mu.
func (s *service) persistLocked() {
	queue := make([]snapshot.QueueItem, 0, len(s.state.queue))
	for _, item := range s.state.queue {
		queue = append(queue, snapshot.QueueItem(item))
	}

	s.writer.Schedule(&snapshot.RoomState{
		AreUserControlsAllowed: s.state.userControlsAllowed,
		IsProxyEnabled:         s.state.proxyEnabled,
		CurrentVideoState: snapshot.PlayerState{
			URL:       s.state.player.URL,
			Time:      s.state.player.Time,
			Paused:    s.state.player.Paused,
			Timestamp: s.state.player.Timestamp,
		},
		VideoQueue:        queue,
		CurrentQueueIndex: s.state.currentIndex,
	})
}

func queueFromSnapshot(items []snapshot.QueueItem) []QueueItem {
	queue := make([]QueueItem, 0, len(items))
	for _, item := range items {
		queue = append(queue, QueueItem(item))
	}

	return queue
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

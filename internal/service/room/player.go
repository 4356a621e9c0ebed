package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// currentEstimateLocked extrapolates the live position: a paused player
// reports its stored position as-is, a playing one advances it by the
// wall-clock seconds elapsed since it was recorded.
func (s *service) currentEstimateLocked() PlayerState {
	state := PlayerState{
		URL:    s.state.player.URL,
		Time:   s.state.player.Time,
		Paused: s.state.player.Paused,
	}
	if !state.Paused {
		state.Time += float64(nowMillis()-s.state.player.Timestamp) / 1000
	}

	return state
}

// CurrentEstimate reports where playback is right now.
func (s *service) CurrentEstimate() PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentEstimateLocked()
}

// loadLocked resets the player onto a new media reference. Loading always
// starts paused at zero and clears every ready flag; it also detaches
// playback from the queue.
func (s *service) loadLocked(url string) {
	s.state.player = Player{
		URL:       url,
		Time:      0,
		Paused:    true,
		Timestamp: nowMillis(),
	}
	s.state.currentIndex = -1
	s.sessionRepo.ResetIsReady()
}

type LoadParams struct {
	SenderConn *websocket.Conn
	URL        string
}

type LoadResponse struct {
	URL   string
	Users []Member
	Conns []*websocket.Conn
}

func (s *service) Load(ctx context.Context, params *LoadParams) (LoadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return LoadResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionLoad) {
		return LoadResponse{}, ErrPermissionDenied
	}

	s.loadLocked(params.URL)
	s.persistLocked()

	s.logger.InfoContext(ctx, "video loaded", "url", params.URL, "by", sender.MemberId)
	return LoadResponse{
		URL:   params.URL,
		Users: s.membersLocked(),
		Conns: s.sessionRepo.Conns(),
	}, nil
}

type SyncParams struct {
	SenderConn *websocket.Conn
	URL        *string
	Time       float64
	Paused     bool
}

type SyncResponse struct {
	Player Player
	// Conns excludes the sender, whose local state is already authoritative.
	Conns []*websocket.Conn
}

// Sync replaces the player state wholesale from the driver's report.
func (s *service) Sync(ctx context.Context, params *SyncParams) (SyncResponse, error) {
	return s.sync(ctx, params, ActionSync)
}

// ForceSync is the hard variant of Sync; the hub applies identical
// semantics, clients treat the rebroadcast as non-negotiable.
func (s *service) ForceSync(ctx context.Context, params *SyncParams) (SyncResponse, error) {
	return s.sync(ctx, params, ActionForceSync)
}

func (s *service) sync(ctx context.Context, params *SyncParams, action Action) (SyncResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return SyncResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, action) {
		return SyncResponse{}, ErrPermissionDenied
	}

	if params.URL != nil {
		s.state.player.URL = *params.URL
	}
	s.state.player.Time = params.Time
	s.state.player.Paused = params.Paused
	s.state.player.Timestamp = nowMillis()
	s.persistLocked()

	return SyncResponse{
		Player: s.state.player,
		Conns:  s.sessionRepo.ConnsExcept(params.SenderConn),
	}, nil
}

type TimeUpdateParams struct {
	SenderConn *websocket.Conn
	Time       float64
	Paused     bool
}

// TimeUpdate is the high-frequency heartbeat: it moves the stored position
// without any broadcast, so the reporting client never hears its own echo.
func (s *service) TimeUpdate(ctx context.Context, params *TimeUpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionTimeUpdate) {
		return ErrPermissionDenied
	}

	s.state.player.Time = params.Time
	s.state.player.Paused = params.Paused
	s.state.player.Timestamp = nowMillis()
	s.persistLocked()

	return nil
}

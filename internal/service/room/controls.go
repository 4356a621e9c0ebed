package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

type ToggleParams struct {
	SenderConn *websocket.Conn
	Value      bool
}

type SystemStateResponse struct {
	SystemState SystemState
	Notice      ChatMessage
	Conns       []*websocket.Conn
}

// ToggleUserControls opens or closes playback controls for non-admin
// participants. The change is announced as a stored system notice.
func (s *service) ToggleUserControls(ctx context.Context, params *ToggleParams) (SystemStateResponse, error) {
	return s.toggle(ctx, params, ActionToggleControls)
}

// ToggleProxy flips the room-wide media proxy flag. The hub only carries the
// flag; the byte-range proxy itself lives outside this service.
func (s *service) ToggleProxy(ctx context.Context, params *ToggleParams) (SystemStateResponse, error) {
	return s.toggle(ctx, params, ActionToggleProxy)
}

func (s *service) toggle(ctx context.Context, params *ToggleParams, action Action) (SystemStateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return SystemStateResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, action) {
		return SystemStateResponse{}, ErrPermissionDenied
	}

	var text string
	switch action {
	case ActionToggleControls:
		s.state.userControlsAllowed = params.Value
		if params.Value {
			text = "controls enabled for everyone"
		} else {
			text = "controls restricted to admins"
		}
	case ActionToggleProxy:
		s.state.proxyEnabled = params.Value
		if params.Value {
			text = "proxy enabled"
		} else {
			text = "proxy disabled"
		}
	}

	notice := s.systemMessageLocked(text)
	s.persistLocked()

	s.logger.InfoContext(ctx, "room flag toggled", "action", string(action), "value", params.Value, "by", sender.MemberId)
	return SystemStateResponse{
		SystemState: SystemState{
			UserControlsAllowed: s.state.userControlsAllowed,
			ProxyEnabled:        s.state.proxyEnabled,
		},
		Notice: notice,
		Conns:  s.sessionRepo.Conns(),
	}, nil
}

package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

type ConnectVoiceParams struct {
	MemberId string
	Conn     *websocket.Conn
}

// ConnectVoice attaches a voice side-channel to an existing member session.
func (s *service) ConnectVoice(ctx context.Context, params *ConnectVoiceParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessionRepo.AddVoiceConn(params.MemberId, params.Conn); err != nil {
		return fmt.Errorf("failed to add voice conn: %w", err)
	}

	s.logger.DebugContext(ctx, "voice channel connected", "member_id", params.MemberId)
	return nil
}

func (s *service) DisconnectVoice(ctx context.Context, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memberId, err := s.sessionRepo.RemoveVoiceConn(conn)
	if err != nil {
		return
	}

	s.logger.DebugContext(ctx, "voice channel disconnected", "member_id", memberId)
}

// VoiceRecipients resolves the fanout targets for one inbound audio frame.
// A muted sender gets no fanout at all, and muted members are excluded from
// the recipient side too: the mute flag cuts a member out of the voice
// channel in both directions.
func (s *service) VoiceRecipients(senderConn *websocket.Conn) []*websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.VoiceOwnerByConn(senderConn)
	if err != nil {
		return nil
	}
	if sender.IsMuted {
		return nil
	}

	conns := s.sessionRepo.VoiceConnsExcept(senderConn)
	recipients := make([]*websocket.Conn, 0, len(conns))
	for _, conn := range conns {
		owner, err := s.sessionRepo.VoiceOwnerByConn(conn)
		if err != nil || owner.IsMuted {
			continue
		}
		recipients = append(recipients, conn)
	}

	return recipients
}

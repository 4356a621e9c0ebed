package room

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/santhosh101066/sync-player/internal/repository/session"
)

func memberFromSession(sess *session.Session) Member {
	return Member{
		Id:        sess.MemberId,
		Nickname:  sess.Nickname,
		IsAdmin:   sess.IsAdmin,
		IsMuted:   sess.IsMuted,
		IsReady:   sess.IsReady,
		AvatarURL: sess.AvatarURL,
	}
}

// membersLocked snapshots the roster. Caller must hold s.mu.
func (s *service) membersLocked() []Member {
	sessions := s.sessionRepo.List()
	members := make([]Member, 0, len(sessions))
	for i := range sessions {
		members = append(members, memberFromSession(&sessions[i]))
	}

	return members
}

type ConnectResponse struct {
	MemberId    string
	SystemState SystemState
	History     []ChatMessage
	Users       []Member
	// Player carries the extrapolated current position for the late joiner,
	// nil when no media is loaded.
	Player *PlayerState
	Conns  []*websocket.Conn
}

// Connect registers a fresh connection under a temporary id and returns
// everything the joiner needs to catch up with the room.
func (s *service) Connect(ctx context.Context, conn *websocket.Conn) (ConnectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := session.Session{
		MemberId: uuid.NewString(),
		Nickname: "anonymous",
	}
	if err := s.sessionRepo.Add(conn, &sess); err != nil {
		return ConnectResponse{}, fmt.Errorf("failed to add session: %w", err)
	}

	resp := ConnectResponse{
		MemberId: sess.MemberId,
		SystemState: SystemState{
			UserControlsAllowed: s.state.userControlsAllowed,
			ProxyEnabled:        s.state.proxyEnabled,
		},
		History: s.history.snapshot(),
		Users:   s.membersLocked(),
		Conns:   s.sessionRepo.ConnsExcept(conn),
	}
	if s.state.player.URL != "" {
		player := s.currentEstimateLocked()
		resp.Player = &player
	}

	s.logger.DebugContext(ctx, "member connected", "member_id", sess.MemberId)
	return resp, nil
}

type DisconnectResponse struct {
	Member *Member
	// Notice is the stored "user left" system message, nil when an
	// unauthenticated placeholder disconnected.
	Notice *ChatMessage
	Users  []Member
	Conns  []*websocket.Conn
}

// Disconnect atomically drops the record before any further broadcast can be
// computed, so no fanout ever targets a dead connection.
func (s *service) Disconnect(ctx context.Context, conn *websocket.Conn) (DisconnectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.sessionRepo.RemoveByConn(conn)
	if err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to remove session: %w", err)
	}

	member := memberFromSession(removed)
	resp := DisconnectResponse{
		Member: &member,
		Users:  s.membersLocked(),
		Conns:  s.sessionRepo.Conns(),
	}
	if removed.IsAuthenticated {
		notice := s.systemMessageLocked(fmt.Sprintf("%s left", removed.Nickname))
		resp.Notice = &notice
	}

	s.logger.DebugContext(ctx, "member disconnected", "member_id", removed.MemberId)
	return resp, nil
}

type SetReadyParams struct {
	SenderConn *websocket.Conn
	IsReady    bool
}

type RosterResponse struct {
	Users []Member
	Conns []*websocket.Conn
}

func (s *service) SetReady(ctx context.Context, params *SetReadyParams) (RosterResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return RosterResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	if err := s.sessionRepo.UpdateIsReady(sess.MemberId, params.IsReady); err != nil {
		return RosterResponse{}, fmt.Errorf("failed to update is ready: %w", err)
	}

	return RosterResponse{
		Users: s.membersLocked(),
		Conns: s.sessionRepo.Conns(),
	}, nil
}

type MuteMemberParams struct {
	SenderConn *websocket.Conn
	TargetId   string
}

type MuteMemberResponse struct {
	Target Member
	Notice ChatMessage
	Users  []Member
	Conns  []*websocket.Conn
}

// MuteMember toggles the target's mute flag. Admin only.
func (s *service) MuteMember(ctx context.Context, params *MuteMemberParams) (MuteMemberResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return MuteMemberResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionMuteUser) {
		return MuteMemberResponse{}, ErrPermissionDenied
	}

	targetConn, err := s.sessionRepo.GetConnByMemberId(params.TargetId)
	if err != nil {
		return MuteMemberResponse{}, ErrMemberNotFound
	}
	target, err := s.sessionRepo.GetByConn(targetConn)
	if err != nil {
		return MuteMemberResponse{}, ErrMemberNotFound
	}

	muted := !target.IsMuted
	if err := s.sessionRepo.UpdateIsMuted(target.MemberId, muted); err != nil {
		return MuteMemberResponse{}, fmt.Errorf("failed to update is muted: %w", err)
	}
	target.IsMuted = muted

	verb := "muted"
	if !muted {
		verb = "unmuted"
	}
	notice := s.systemMessageLocked(fmt.Sprintf("%s was %s", target.Nickname, verb))

	return MuteMemberResponse{
		Target: memberFromSession(&target),
		Notice: notice,
		Users:  s.membersLocked(),
		Conns:  s.sessionRepo.Conns(),
	}, nil
}

type KickMemberParams struct {
	SenderConn *websocket.Conn
	TargetId   string
}

type KickMemberResponse struct {
	// KickedConn is already removed from the registry; the caller sends the
	// kick message and closes it.
	KickedConn *websocket.Conn
	Notice     ChatMessage
	Users      []Member
	Conns      []*websocket.Conn
}

func (s *service) KickMember(ctx context.Context, params *KickMemberParams) (KickMemberResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return KickMemberResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionKickUser) {
		return KickMemberResponse{}, ErrPermissionDenied
	}

	targetConn, err := s.sessionRepo.GetConnByMemberId(params.TargetId)
	if err != nil {
		return KickMemberResponse{}, ErrMemberNotFound
	}
	removed, err := s.sessionRepo.RemoveByConn(targetConn)
	if err != nil {
		return KickMemberResponse{}, ErrMemberNotFound
	}

	notice := s.systemMessageLocked(fmt.Sprintf("%s was kicked", removed.Nickname))
	s.logger.InfoContext(ctx, "member kicked", "member_id", removed.MemberId, "by", sender.MemberId)

	return KickMemberResponse{
		KickedConn: targetConn,
		Notice:     notice,
		Users:      s.membersLocked(),
		Conns:      s.sessionRepo.Conns(),
	}, nil
}

type GetUsersParams struct {
	SenderConn *websocket.Conn
}

func (s *service) GetUsers(ctx context.Context, params *GetUsersParams) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionGetUsers) {
		return nil, ErrPermissionDenied
	}

	return s.membersLocked(), nil
}

package room

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/santhosh101066/sync-player/internal/repository/identity"
	"github.com/santhosh101066/sync-player/internal/repository/session"
)

type Action string

const (
	ActionToggleControls Action = "toggle-user-controls"
	ActionToggleProxy    Action = "toggle-proxy"
	ActionLoad           Action = "load"
	ActionQueuePlayNext  Action = "queue-play-next"
	ActionQueuePlayNow   Action = "queue-play-now"
	ActionQueueRemove    Action = "queue-remove"
	ActionQueueReorder   Action = "queue-reorder"
	ActionMuteUser       Action = "mute-user"
	ActionKickUser       Action = "kick-user"
	ActionGetUsers       Action = "get-users"
	ActionSync           Action = "sync"
	ActionForceSync      Action = "forceSync"
	ActionTimeUpdate     Action = "timeUpdate"
)

// canPerformLocked is the authorization gate. Everything not named here
// (chat, ready, queue-add, queue-get, video-ended, ping) is open to every
// participant. Caller must hold s.mu because the controls-open flag is part
// of room state.
func (s *service) canPerformLocked(sess *session.Session, action Action) bool {
	switch action {
	case ActionToggleControls, ActionToggleProxy, ActionLoad,
		ActionQueuePlayNext, ActionQueuePlayNow, ActionQueueRemove, ActionQueueReorder,
		ActionMuteUser, ActionKickUser, ActionGetUsers:
		return sess.IsAdmin
	case ActionSync, ActionForceSync, ActionTimeUpdate:
		return sess.IsAdmin || s.state.userControlsAllowed
	default:
		return true
	}
}

// stableId derives the privacy-preserving member id from the verified claim
// subject. The hash is deterministic so the same external identity maps to
// the same id across reconnects and restarts.
func stableId(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}

type AuthSuccess struct {
	Nickname  string  `json:"nick"`
	AvatarURL *string `json:"picture,omitempty"`
	Email     string  `json:"email,omitempty"`
	UserId    string  `json:"userId"`
}

type AuthenticateParams struct {
	Conn  *websocket.Conn
	Token string
}

type AuthenticateResponse struct {
	Member Member
	Auth   AuthSuccess
	// ReplacedConn is the previous live connection holding the same stable
	// id, already removed from the registry. The caller must notify and
	// close it.
	ReplacedConn *websocket.Conn
	Users        []Member
	Conns        []*websocket.Conn
}

// AuthenticateGoogle resolves an external token into a stable identity and
// installs it on the sender's session. A failed verification leaves the
// registry untouched.
func (s *service) AuthenticateGoogle(ctx context.Context, params *AuthenticateParams) (AuthenticateResponse, error) {
	claim, err := s.verifier.Verify(ctx, params.Token)
	if err != nil {
		return AuthenticateResponse{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	return s.installIdentity(ctx, params.Conn, claim)
}

type AuthenticateDevParams struct {
	Conn  *websocket.Conn
	Email string
}

// AuthenticateDev is the operator bypass path. It only works when the server
// runs with dev auth explicitly enabled and the email matches the configured
// admin email; anything else is rejected without touching the registry.
func (s *service) AuthenticateDev(ctx context.Context, params *AuthenticateDevParams) (AuthenticateResponse, error) {
	if !s.devAuthEnabled {
		return AuthenticateResponse{}, ErrDevAuthRejected
	}
	if s.adminEmail == "" || params.Email != s.adminEmail {
		return AuthenticateResponse{}, ErrDevAuthRejected
	}

	return s.installIdentity(ctx, params.Conn, identity.Claim{
		Subject: params.Email,
		Email:   params.Email,
		Name:    "admin",
	})
}

func (s *service) installIdentity(ctx context.Context, conn *websocket.Conn, claim identity.Claim) (AuthenticateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memberId := stableId(claim.Subject)

	// At most one live connection per identity: an older session with the
	// same id is superseded before the new record is installed.
	var replacedConn *websocket.Conn
	if existing, err := s.sessionRepo.GetConnByMemberId(memberId); err == nil && existing != conn {
		if _, err := s.sessionRepo.RemoveByConn(existing); err != nil {
			return AuthenticateResponse{}, fmt.Errorf("failed to remove superseded session: %w", err)
		}
		replacedConn = existing
		s.logger.InfoContext(ctx, "session superseded", "member_id", memberId)
	}

	nickname := claim.Name
	if nickname == "" {
		nickname = claim.Email
	}

	sess := session.Session{
		MemberId:        memberId,
		Nickname:        nickname,
		Email:           claim.Email,
		AvatarURL:       claim.AvatarURL,
		IsAdmin:         s.adminEmail != "" && claim.Email == s.adminEmail,
		IsAuthenticated: true,
	}
	if err := s.sessionRepo.Promote(conn, &sess); err != nil {
		return AuthenticateResponse{}, fmt.Errorf("failed to promote session: %w", err)
	}

	return AuthenticateResponse{
		Member: memberFromSession(&sess),
		Auth: AuthSuccess{
			Nickname:  sess.Nickname,
			AvatarURL: sess.AvatarURL,
			Email:     sess.Email,
			UserId:    sess.MemberId,
		},
		ReplacedConn: replacedConn,
		Users:        s.membersLocked(),
		Conns:        s.sessionRepo.Conns(),
	}, nil
}

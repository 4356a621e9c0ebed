package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/santhosh101066/sync-player/internal/repository/session"
)

// repo owns the live connection <-> participant mapping. The control channel
// is the primary key; a member may additionally register one voice channel.
// Records are kept in connect order so user lists stay stable.
type repo struct {
	mu          sync.RWMutex
	byConn      map[*websocket.Conn]*session.Session
	connById    map[string]*websocket.Conn
	order       []*websocket.Conn
	voiceByConn map[*websocket.Conn]string
	voiceById   map[string]*websocket.Conn
	logger      *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		byConn:      make(map[*websocket.Conn]*session.Session),
		connById:    make(map[string]*websocket.Conn),
		voiceByConn: make(map[*websocket.Conn]string),
		voiceById:   make(map[string]*websocket.Conn),
		logger:      logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, sess *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[conn]; ok {
		return session.ErrAlreadyExists
	}
	if _, ok := r.connById[sess.MemberId]; ok {
		return session.ErrAlreadyExists
	}

	copied := *sess
	r.byConn[conn] = &copied
	r.connById[copied.MemberId] = conn
	r.order = append(r.order, conn)

	r.logger.Debug("session added", "member_id", copied.MemberId)
	return nil
}

// RemoveByConn drops the record for conn and returns a copy of it. The voice
// channel registered for the same member, if any, is dropped too.
func (r *repo) RemoveByConn(conn *websocket.Conn) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byConn[conn]
	if !ok {
		return nil, session.ErrNotFound
	}

	delete(r.byConn, conn)
	delete(r.connById, sess.MemberId)
	r.dropFromOrder(conn)

	if voiceConn, ok := r.voiceById[sess.MemberId]; ok {
		delete(r.voiceById, sess.MemberId)
		delete(r.voiceByConn, voiceConn)
	}

	r.logger.Debug("session removed", "member_id", sess.MemberId)
	removed := *sess
	return &removed, nil
}

func (r *repo) GetByConn(conn *websocket.Conn) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.byConn[conn]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}

	return *sess, nil
}

// GetConnByMemberId returns the control connection of the member with the
// given stable or temporary id.
func (r *repo) GetConnByMemberId(memberId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connById[memberId]
	if !ok {
		return nil, session.ErrNotFound
	}

	return conn, nil
}

// Promote replaces the record for conn wholesale, reindexing it under the new
// member id. Used when authentication swaps the temporary id for the stable
// identity hash.
func (r *repo) Promote(conn *websocket.Conn, sess *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byConn[conn]
	if !ok {
		return session.ErrNotFound
	}

	delete(r.connById, old.MemberId)
	copied := *sess
	r.byConn[conn] = &copied
	r.connById[copied.MemberId] = conn

	// a voice channel opened under the old id follows the member
	if voiceConn, ok := r.voiceById[old.MemberId]; ok {
		delete(r.voiceById, old.MemberId)
		r.voiceById[copied.MemberId] = voiceConn
		r.voiceByConn[voiceConn] = copied.MemberId
	}

	r.logger.Debug("session promoted", "member_id", copied.MemberId)
	return nil
}

func (r *repo) UpdateIsMuted(memberId string, isMuted bool) error {
	return r.update(memberId, func(sess *session.Session) { sess.IsMuted = isMuted })
}

func (r *repo) UpdateIsReady(memberId string, isReady bool) error {
	return r.update(memberId, func(sess *session.Session) { sess.IsReady = isReady })
}

// ResetIsReady clears the ready flag of every live member.
func (r *repo) ResetIsReady() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sess := range r.byConn {
		sess.IsReady = false
	}
}

func (r *repo) update(memberId string, fn func(*session.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connById[memberId]
	if !ok {
		return session.ErrNotFound
	}

	fn(r.byConn[conn])
	return nil
}

// List returns snapshots of every live session in connect order.
func (r *repo) List() []session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]session.Session, 0, len(r.order))
	for _, conn := range r.order {
		sessions = append(sessions, *r.byConn[conn])
	}

	return sessions
}

func (r *repo) Conns() []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, len(r.order))
	copy(conns, r.order)
	return conns
}

func (r *repo) ConnsExcept(exclude *websocket.Conn) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.order))
	for _, conn := range r.order {
		if conn != exclude {
			conns = append(conns, conn)
		}
	}

	return conns
}

func (r *repo) AddVoiceConn(memberId string, conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connById[memberId]; !ok {
		return session.ErrNotFound
	}
	if _, ok := r.voiceById[memberId]; ok {
		return session.ErrAlreadyExists
	}

	r.voiceById[memberId] = conn
	r.voiceByConn[conn] = memberId
	return nil
}

func (r *repo) RemoveVoiceConn(conn *websocket.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	memberId, ok := r.voiceByConn[conn]
	if !ok {
		return "", session.ErrNotFound
	}

	delete(r.voiceByConn, conn)
	delete(r.voiceById, memberId)
	return memberId, nil
}

// VoiceOwnerByConn resolves a voice connection back to the session snapshot
// of its owner.
func (r *repo) VoiceOwnerByConn(conn *websocket.Conn) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberId, ok := r.voiceByConn[conn]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}

	controlConn, ok := r.connById[memberId]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}

	return *r.byConn[controlConn], nil
}

func (r *repo) VoiceConnsExcept(exclude *websocket.Conn) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.voiceByConn))
	for conn := range r.voiceByConn {
		if conn != exclude {
			conns = append(conns, conn)
		}
	}

	return conns
}

func (r *repo) dropFromOrder(conn *websocket.Conn) {
	for i, c := range r.order {
		if c == conn {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

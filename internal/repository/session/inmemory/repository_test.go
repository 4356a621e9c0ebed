package inmemory_test

import (
	"log/slog"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santhosh101066/sync-player/internal/repository/session"
	"github.com/santhosh101066/sync-player/internal/repository/session/inmemory"
)

func TestAddAndGet(t *testing.T) {
	repo := inmemory.NewRepo(slog.Default())
	conn := &websocket.Conn{}

	err := repo.Add(conn, &session.Session{MemberId: "m1", Nickname: "alice"})
	require.NoError(t, err)

	sess, err := repo.GetByConn(conn)
	require.NoError(t, err)
	assert.Equal(t, "m1", sess.MemberId)
	assert.Equal(t, "alice", sess.Nickname)

	got, err := repo.GetConnByMemberId("m1")
	require.NoError(t, err)
	assert.Equal(t, conn, got)

	// same connection cannot be registered twice
	err = repo.Add(conn, &session.Session{MemberId: "m2"})
	require.ErrorIs(t, err, session.ErrAlreadyExists)

	// same member id cannot be registered twice
	err = repo.Add(&websocket.Conn{}, &session.Session{MemberId: "m1"})
	require.ErrorIs(t, err, session.ErrAlreadyExists)

	_, err = repo.GetByConn(&websocket.Conn{})
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestAddCopiesSession(t *testing.T) {
	repo := inmemory.NewRepo(slog.Default())
	conn := &websocket.Conn{}

	sess := session.Session{MemberId: "m1", Nickname: "alice"}
	require.NoError(t, repo.Add(conn, &sess))

	// mutating the caller's struct must not leak into the registry
	sess.Nickname = "mallory"
	stored, err := repo.GetByConn(conn)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Nickname)
}

func TestRemoveByConn(t *testing.T) {
	repo := inmemory.NewRepo(slog.Default())
	conn := &websocket.Conn{}
	require.NoError(t, repo.Add(conn, &session.Session{MemberId: "m1"}))

	voice := &websocket.Conn{}
	require.NoError(t, repo.AddVoiceConn("m1", voice))

	removed, err := repo.RemoveByConn(conn)
	require.NoError(t, err)
	assert.Equal(t, "m1", removed.MemberId)

	_, err = repo.GetByConn(conn)
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = repo.GetConnByMemberId("m1")
	require.ErrorIs(t, err, session.ErrNotFound)

	// the member's voice channel went with the control channel
	_, err = repo.VoiceOwnerByConn(voice)
	require.ErrorIs(t, err, session.ErrNotFound)

	_, err = repo.RemoveByConn(conn)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestPromoteReindexes(t *testing.T) {
	repo := inmemory.NewRepo(slog.Default())
	conn := &websocket.Conn{}
	require.NoError(t, repo.Add(conn, &session.Session{MemberId: "temp", Nickname: "anonymous"}))

	err := repo.Promote(conn, &session.Session{MemberId: "stable", Nickname: "alice", IsAuthenticated: true})
	require.NoError(t, err)

	_, err = repo.GetConnByMemberId("temp")
	require.ErrorIs(t, err, session.ErrNotFound)

	got, err := repo.GetConnByMemberId("stable")
	require.NoError(t, err)
	assert.Equal(t, conn, got)

	sess, err := repo.GetByConn(conn)
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated)

	err = repo.Promote(&websocket.Conn{}, &session.Session{MemberId: "x"})
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestPromoteReindexesVoiceChannel(t *testing.T) {
	repo := inmemory.NewRepo(slog.Default())
	conn := &websocket.Conn{}
	require.NoError(t, repo.Add(conn, &session.Session{MemberId: "temp"}))

	// voice channel opened before authentication, under the temporary id
	voice := &websocket.Conn{}
	require.NoError(t, repo.AddVoiceConn("temp", voice))

	require.NoError(t, repo.Promote(conn, &session.Session{MemberId: "stable", Nickname: "alice"}))

	owner, err := repo.VoiceOwnerByConn(voice)
	require.NoError(t, err)
	assert.Equal(t, "stable", owner.MemberId)
	assert.Equal(t, "alice", owner.Nickname)

	// disconnect under the stable id still drops the voice channel
	_, err = repo.RemoveByConn(conn)
	require.NoError(t, err)
	_, err = repo.VoiceOwnerByConn(voice)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestListKeepsConnectOrder(t *testing.T) {
	repo := inmemory.NewRepo(slog.Default())

	conns := []*websocket.Conn{{}, {}, {}}
	for i, conn := range conns {
		require.NoError(t, repo.Add(conn, &session.Session{MemberId: string(rune('a' + i))}))
	}

	sessions := repo.List()
	require.Len(t, sessions, 3)
	assert.Equal(t, "a", sessions[0].MemberId)
	assert.Equal(t, "b", sessions[1].MemberId)
	assert.Equal(t, "c", sessions[2].MemberId)

	// removing the middle member keeps the rest in order
	_, err := repo.RemoveByConn(conns[1])
	require.NoError(t, err)
	sessions = repo.List()
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].MemberId)
	assert.Equal(t, "c", sessions[1].MemberId)

	assert.Equal(t, []*websocket.Conn{conns[0], conns[2]}, repo.Conns())
	assert.Equal(t, []*websocket.Conn{conns[2]}, repo.ConnsExcept(conns[0]))
}

func TestUpdateFlags(t *testing.T) {
	repo := inmemory.NewRepo(slog.Default())
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}
	require.NoError(t, repo.Add(conn1, &session.Session{MemberId: "m1"}))
	require.NoError(t, repo.Add(conn2, &session.Session{MemberId: "m2"}))

	require.NoError(t, repo.UpdateIsMuted("m1", true))
	require.NoError(t, repo.UpdateIsReady("m1", true))
	require.NoError(t, repo.UpdateIsReady("m2", true))

	sess, err := repo.GetByConn(conn1)
	require.NoError(t, err)
	assert.True(t, sess.IsMuted)
	assert.True(t, sess.IsReady)

	repo.ResetIsReady()
	for _, sess := range repo.List() {
		assert.False(t, sess.IsReady)
	}
	sess, err = repo.GetByConn(conn1)
	require.NoError(t, err)
	assert.True(t, sess.IsMuted, "reset only touches the ready flag")

	require.ErrorIs(t, repo.UpdateIsMuted("ghost", true), session.ErrNotFound)
}

func TestVoiceChannels(t *testing.T) {
	repo := inmemory.NewRepo(slog.Default())
	conn := &websocket.Conn{}
	require.NoError(t, repo.Add(conn, &session.Session{MemberId: "m1", Nickname: "alice"}))

	voice := &websocket.Conn{}
	require.ErrorIs(t, repo.AddVoiceConn("ghost", voice), session.ErrNotFound)
	require.NoError(t, repo.AddVoiceConn("m1", voice))
	require.ErrorIs(t, repo.AddVoiceConn("m1", &websocket.Conn{}), session.ErrAlreadyExists)

	sender, err := repo.VoiceOwnerByConn(voice)
	require.NoError(t, err)
	assert.Equal(t, "alice", sender.Nickname)

	assert.Empty(t, repo.VoiceConnsExcept(voice))

	memberId, err := repo.RemoveVoiceConn(voice)
	require.NoError(t, err)
	assert.Equal(t, "m1", memberId)
	_, err = repo.RemoveVoiceConn(voice)
	require.ErrorIs(t, err, session.ErrNotFound)
}

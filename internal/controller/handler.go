package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/santhosh101066/sync-player/internal/service/room"
)

func (c *controller) serveControl(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	defer c.releaseConn(conn)

	ctx := r.Context()
	connectResp, err := c.roomService.Connect(ctx, conn)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to connect member", "error", err)
		return
	}
	defer c.disconnect(conn)

	// catch the joiner up: identity, room flags, chat backlog, roster and,
	// when media is loaded, the extrapolated play position
	if err := c.writeToConn(ctx, conn, &welcomeOutput{Type: "welcome", UserId: connectResp.MemberId}); err != nil {
		c.logger.WarnContext(ctx, "failed to write welcome", "error", err)
		return
	}
	if err := c.writeToConn(ctx, conn, &systemStateOutput{Type: "system-state", SystemState: connectResp.SystemState}); err != nil {
		c.logger.WarnContext(ctx, "failed to write system state", "error", err)
		return
	}
	if err := c.writeToConn(ctx, conn, &chatHistoryOutput{Type: "chat-history", Messages: connectResp.History}); err != nil {
		c.logger.WarnContext(ctx, "failed to write chat history", "error", err)
		return
	}
	if err := c.writeToConn(ctx, conn, &userListOutput{Type: "user-list", Users: connectResp.Users}); err != nil {
		c.logger.WarnContext(ctx, "failed to write user list", "error", err)
		return
	}
	if connectResp.Player != nil {
		if err := c.writeToConn(ctx, conn, &forceSyncOutput{Type: "forceSync", PlayerState: *connectResp.Player}); err != nil {
			c.logger.WarnContext(ctx, "failed to write player state", "error", err)
			return
		}
	}

	if err := c.broadcast(ctx, connectResp.Conns, &userListOutput{Type: "user-list", Users: connectResp.Users}); err != nil {
		c.logger.WarnContext(ctx, "failed to broadcast user list", "error", err)
	}

	if err := c.wsmux.ServeConn(ctx, conn, c.onMessageError); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

// onMessageError implements the malformed-message policy: log and keep the
// connection open.
func (c *controller) onMessageError(ctx context.Context, err error) {
	c.logger.WarnContext(ctx, "websocket message failed", "error", err)
}

func (c *controller) disconnect(conn *websocket.Conn) {
	ctx := context.Background()

	disconnectResp, err := c.roomService.Disconnect(ctx, conn)
	if err != nil {
		// already removed by a kick or a superseding session
		c.logger.DebugContext(ctx, "disconnect without session", "error", err)
		return
	}

	if disconnectResp.Notice != nil {
		if err := c.broadcast(ctx, disconnectResp.Conns, &chatOutput{Type: "chat", ChatMessage: *disconnectResp.Notice}); err != nil {
			c.logger.WarnContext(ctx, "failed to broadcast leave notice", "error", err)
		}
	}
	if err := c.broadcast(ctx, disconnectResp.Conns, &userListOutput{Type: "user-list", Users: disconnectResp.Users}); err != nil {
		c.logger.WarnContext(ctx, "failed to broadcast user list", "error", err)
	}
}

const (
	voicePongWait   = 60 * time.Second
	voicePingPeriod = (voicePongWait * 9) / 10
	voiceFrameLimit = 64 * 1024
)

// serveVoice handles the per-connection audio side-channel: opaque binary
// frames relayed verbatim to every other voice connection. A silent peer is
// kept alive by protocol-level pings; one that stops answering is dropped by
// the read deadline.
func (c *controller) serveVoice(w http.ResponseWriter, r *http.Request) {
	memberId := r.URL.Query().Get("user-id")
	if memberId == "" {
		http.Error(w, "user-id is required", http.StatusBadRequest)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if err := c.roomService.ConnectVoice(ctx, &room.ConnectVoiceParams{MemberId: memberId, Conn: conn}); err != nil {
		c.logger.DebugContext(ctx, "failed to connect voice channel", "error", err)
		return
	}
	defer c.roomService.DisconnectVoice(context.Background(), conn)
	defer c.releaseConn(conn)

	conn.SetReadLimit(voiceFrameLimit)
	conn.SetReadDeadline(time.Now().Add(voicePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(voicePongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(voicePingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		conn.SetReadDeadline(time.Now().Add(voicePongWait))

		for _, recipient := range c.roomService.VoiceRecipients(conn) {
			if err := c.writeBinary(recipient, frame); err != nil {
				c.logger.DebugContext(ctx, "failed to relay voice frame", "error", err)
			}
		}
	}
}

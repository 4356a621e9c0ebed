package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/santhosh101066/sync-player/internal/service/room"
)

// dropUnauthorized implements the silent-drop policy for the authorization
// gate: no response reaches the actor, only a log line records the attempt.
func (c *controller) dropUnauthorized(ctx context.Context, err error) bool {
	if errors.Is(err, room.ErrPermissionDenied) {
		c.logger.DebugContext(ctx, "unauthorized action dropped")
		return true
	}

	return false
}

type pingInput struct {
	StartTime float64 `json:"startTime"`
}

func (c *controller) handlePing(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input pingInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	return c.writeToConn(ctx, conn, &pongOutput{Type: "pong", StartTime: input.StartTime})
}

type authGoogleInput struct {
	Token string `json:"token" validate:"required"`
}

func (c *controller) handleAuthGoogle(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input authGoogleInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.AuthenticateGoogle(ctx, &room.AuthenticateParams{
		Conn:  conn,
		Token: input.Token,
	})
	if err != nil {
		if errors.Is(err, room.ErrAuthFailed) {
			c.writeError(ctx, conn, "authentication failed")
			return nil
		}
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	return c.finishAuthentication(ctx, conn, &resp)
}

type authDevInput struct {
	Email string `json:"email" validate:"required"`
}

func (c *controller) handleAuthDev(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input authDevInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.AuthenticateDev(ctx, &room.AuthenticateDevParams{
		Conn:  conn,
		Email: input.Email,
	})
	if err != nil {
		if errors.Is(err, room.ErrDevAuthRejected) {
			return c.writeToConn(ctx, conn, &typeOnlyOutput{Type: "admin-fail"})
		}
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	return c.finishAuthentication(ctx, conn, &resp)
}

func (c *controller) finishAuthentication(ctx context.Context, conn *websocket.Conn, resp *room.AuthenticateResponse) error {
	if resp.ReplacedConn != nil {
		if err := c.writeToConn(ctx, resp.ReplacedConn, &sessionReplacedOutput{
			Type: "session-replaced",
			Text: "you connected from another device",
		}); err != nil {
			c.logger.DebugContext(ctx, "failed to notify superseded session", "error", err)
		}
		resp.ReplacedConn.Close()
	}

	if err := c.writeToConn(ctx, conn, &authSuccessOutput{Type: "auth-success", AuthSuccess: resp.Auth}); err != nil {
		return fmt.Errorf("failed to write auth success: %w", err)
	}
	if resp.Member.IsAdmin {
		if err := c.writeToConn(ctx, conn, &typeOnlyOutput{Type: "admin-success"}); err != nil {
			return fmt.Errorf("failed to write admin success: %w", err)
		}
	}

	if err := c.broadcast(ctx, resp.Conns, &userListOutput{Type: "user-list", Users: resp.Users}); err != nil {
		return fmt.Errorf("failed to broadcast user list: %w", err)
	}

	// transient join notice: broadcast but never stored in history
	notice := c.roomService.JoinNotice(resp.Member.Nickname)
	return c.broadcastExcept(ctx, resp.Conns, conn, &chatOutput{Type: "chat", ChatMessage: notice})
}

type chatInput struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

func (c *controller) handleChat(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input chatInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}
	if input.Text == "" && input.Image == "" {
		return nil
	}

	resp, err := c.roomService.SendChat(ctx, &room.SendChatParams{
		SenderConn: conn,
		Text:       input.Text,
		Image:      input.Image,
	})
	if err != nil {
		return fmt.Errorf("failed to send chat: %w", err)
	}

	return c.broadcast(ctx, resp.Conns, &chatOutput{Type: "chat", ChatMessage: resp.Message})
}

type syncInput struct {
	URL    *string `json:"url"`
	Time   float64 `json:"time" validate:"gte=0"`
	Paused bool    `json:"paused"`
}

func (c *controller) handleSync(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	return c.syncCommon(ctx, conn, msg, c.roomService.Sync)
}

func (c *controller) handleForceSync(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	return c.syncCommon(ctx, conn, msg, c.roomService.ForceSync)
}

func (c *controller) syncCommon(ctx context.Context, conn *websocket.Conn, msg json.RawMessage, apply func(context.Context, *room.SyncParams) (room.SyncResponse, error)) error {
	var input syncInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := apply(ctx, &room.SyncParams{
		SenderConn: conn,
		URL:        input.URL,
		Time:       input.Time,
		Paused:     input.Paused,
	})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to sync: %w", err)
	}

	// the raw event is echoed verbatim; the sender already has authoritative
	// local state and is excluded
	return c.broadcast(ctx, resp.Conns, json.RawMessage(msg))
}

type loadInput struct {
	URL string `json:"url" validate:"required"`
}

func (c *controller) handleLoad(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input loadInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.Load(ctx, &room.LoadParams{SenderConn: conn, URL: input.URL})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to load: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &loadOutput{Type: "load", URL: resp.URL}); err != nil {
		return err
	}

	// every ready flag was reset
	return c.broadcast(ctx, resp.Conns, &userListOutput{Type: "user-list", Users: resp.Users})
}

type timeUpdateInput struct {
	Time   float64 `json:"time" validate:"gte=0"`
	Paused bool    `json:"paused"`
}

func (c *controller) handleTimeUpdate(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input timeUpdateInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	err := c.roomService.TimeUpdate(ctx, &room.TimeUpdateParams{
		SenderConn: conn,
		Time:       input.Time,
		Paused:     input.Paused,
	})
	if err != nil && !c.dropUnauthorized(ctx, err) {
		return fmt.Errorf("failed to update time: %w", err)
	}

	return nil
}

type queueVideoInput struct {
	Video room.VideoInput `json:"video"`
}

func (c *controller) handleQueueAdd(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input queueVideoInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.AddToQueue(ctx, &room.AddToQueueParams{SenderConn: conn, Video: input.Video})
	if err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return c.broadcastQueueState(ctx, &resp)
}

func (c *controller) handleQueuePlayNext(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input queueVideoInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.PlayNext(ctx, &room.PlayNextParams{SenderConn: conn, Video: input.Video})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to play next: %w", err)
	}

	return c.broadcastQueueState(ctx, &resp)
}

func (c *controller) handleQueuePlayNow(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input queueVideoInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.PlayNow(ctx, &room.PlayNowParams{SenderConn: conn, Video: input.Video})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to play now: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &loadOutput{Type: "load", URL: resp.URL}); err != nil {
		return err
	}
	if err := c.broadcast(ctx, resp.Conns, &userListOutput{Type: "user-list", Users: resp.Users}); err != nil {
		return err
	}

	return c.broadcast(ctx, resp.Conns, &queueStateOutput{
		Type:       "queue-state",
		QueueState: room.QueueState{Queue: resp.Queue, CurrentIndex: resp.CurrentIndex},
	})
}

type queueRemoveInput struct {
	ItemId string `json:"itemId" validate:"required"`
}

func (c *controller) handleQueueRemove(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input queueRemoveInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.RemoveFromQueue(ctx, &room.RemoveFromQueueParams{SenderConn: conn, ItemId: input.ItemId})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		if errors.Is(err, room.ErrQueueItemNotFound) {
			// two admins racing on the same item; the second click is a no-op
			c.logger.DebugContext(ctx, "queue item already gone", "item_id", input.ItemId)
			return nil
		}
		return fmt.Errorf("failed to remove from queue: %w", err)
	}

	return c.broadcastQueueState(ctx, &resp)
}

type queueReorderInput struct {
	FromIndex int `json:"fromIndex" validate:"gte=0"`
	ToIndex   int `json:"toIndex" validate:"gte=0"`
}

func (c *controller) handleQueueReorder(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input queueReorderInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.ReorderQueue(ctx, &room.ReorderQueueParams{
		SenderConn: conn,
		FromIndex:  input.FromIndex,
		ToIndex:    input.ToIndex,
	})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to reorder queue: %w", err)
	}

	return c.broadcastQueueState(ctx, &resp)
}

func (c *controller) handleQueueGet(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	state, err := c.roomService.GetQueue(ctx, &room.GetQueueParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}

	return c.writeToConn(ctx, conn, &queueStateOutput{Type: "queue-state", QueueState: state})
}

func (c *controller) handleVideoEnded(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	resp, err := c.roomService.VideoEnded(ctx, &room.VideoEndedParams{SenderConn: conn})
	if err != nil {
		return fmt.Errorf("failed to advance queue: %w", err)
	}

	if resp.Advanced {
		if err := c.broadcast(ctx, resp.Conns, &loadOutput{Type: "load", URL: resp.URL}); err != nil {
			return err
		}
		if err := c.broadcast(ctx, resp.Conns, &forceSyncOutput{
			Type:        "forceSync",
			PlayerState: room.PlayerState{URL: resp.URL, Time: 0, Paused: false},
		}); err != nil {
			return err
		}
	}

	return c.broadcast(ctx, resp.Conns, &queueStateOutput{
		Type:       "queue-state",
		QueueState: room.QueueState{Queue: resp.Queue, CurrentIndex: resp.CurrentIndex},
	})
}

type readyInput struct {
	Value bool `json:"value"`
}

func (c *controller) handleReady(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input readyInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.SetReady(ctx, &room.SetReadyParams{SenderConn: conn, IsReady: input.Value})
	if err != nil {
		return fmt.Errorf("failed to set ready: %w", err)
	}

	return c.broadcast(ctx, resp.Conns, &userListOutput{Type: "user-list", Users: resp.Users})
}

type targetInput struct {
	TargetId string `json:"targetId" validate:"required"`
}

func (c *controller) handleMuteUser(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input targetInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.MuteMember(ctx, &room.MuteMemberParams{SenderConn: conn, TargetId: input.TargetId})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to mute member: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &chatOutput{Type: "chat", ChatMessage: resp.Notice}); err != nil {
		return err
	}

	return c.broadcast(ctx, resp.Conns, &userListOutput{Type: "user-list", Users: resp.Users})
}

func (c *controller) handleKickUser(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	var input targetInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := c.roomService.KickMember(ctx, &room.KickMemberParams{SenderConn: conn, TargetId: input.TargetId})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to kick member: %w", err)
	}

	if err := c.writeToConn(ctx, resp.KickedConn, &typeOnlyOutput{Type: "kick"}); err != nil {
		c.logger.DebugContext(ctx, "failed to notify kicked member", "error", err)
	}
	closeLock := c.connLock(resp.KickedConn)
	closeLock.Lock()
	resp.KickedConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "kicked"))
	closeLock.Unlock()
	resp.KickedConn.Close()

	if err := c.broadcast(ctx, resp.Conns, &chatOutput{Type: "chat", ChatMessage: resp.Notice}); err != nil {
		return err
	}

	return c.broadcast(ctx, resp.Conns, &userListOutput{Type: "user-list", Users: resp.Users})
}

type toggleInput struct {
	Value bool `json:"value"`
}

func (c *controller) handleToggleUserControls(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	return c.toggleCommon(ctx, conn, msg, c.roomService.ToggleUserControls)
}

func (c *controller) handleToggleProxy(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	return c.toggleCommon(ctx, conn, msg, c.roomService.ToggleProxy)
}

func (c *controller) toggleCommon(ctx context.Context, conn *websocket.Conn, msg json.RawMessage, apply func(context.Context, *room.ToggleParams) (room.SystemStateResponse, error)) error {
	var input toggleInput
	if err := c.unmarshalInput(msg, &input); err != nil {
		return err
	}

	resp, err := apply(ctx, &room.ToggleParams{SenderConn: conn, Value: input.Value})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to toggle: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &systemStateOutput{Type: "system-state", SystemState: resp.SystemState}); err != nil {
		return err
	}

	return c.broadcast(ctx, resp.Conns, &chatOutput{Type: "chat", ChatMessage: resp.Notice})
}

func (c *controller) handleGetUsers(ctx context.Context, conn *websocket.Conn, msg json.RawMessage) error {
	users, err := c.roomService.GetUsers(ctx, &room.GetUsersParams{SenderConn: conn})
	if err != nil {
		if c.dropUnauthorized(ctx, err) {
			return nil
		}
		return fmt.Errorf("failed to get users: %w", err)
	}

	return c.writeToConn(ctx, conn, &userListOutput{Type: "user-list", Users: users})
}

func (c *controller) broadcastQueueState(ctx context.Context, resp *room.QueueResponse) error {
	return c.broadcast(ctx, resp.Conns, &queueStateOutput{
		Type:       "queue-state",
		QueueState: room.QueueState{Queue: resp.Queue, CurrentIndex: resp.CurrentIndex},
	})
}

package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/santhosh101066/sync-player/internal/service/room"
	"github.com/santhosh101066/sync-player/pkg/validator"
	"github.com/santhosh101066/sync-player/pkg/wsrouter"
)

type iRoomService interface {
	Connect(context.Context, *websocket.Conn) (room.ConnectResponse, error)
	Disconnect(context.Context, *websocket.Conn) (room.DisconnectResponse, error)

	AuthenticateGoogle(context.Context, *room.AuthenticateParams) (room.AuthenticateResponse, error)
	AuthenticateDev(context.Context, *room.AuthenticateDevParams) (room.AuthenticateResponse, error)

	SendChat(context.Context, *room.SendChatParams) (room.SendChatResponse, error)
	JoinNotice(nickname string) room.ChatMessage

	Load(context.Context, *room.LoadParams) (room.LoadResponse, error)
	Sync(context.Context, *room.SyncParams) (room.SyncResponse, error)
	ForceSync(context.Context, *room.SyncParams) (room.SyncResponse, error)
	TimeUpdate(context.Context, *room.TimeUpdateParams) error
	CurrentEstimate() room.PlayerState

	AddToQueue(context.Context, *room.AddToQueueParams) (room.QueueResponse, error)
	PlayNext(context.Context, *room.PlayNextParams) (room.QueueResponse, error)
	PlayNow(context.Context, *room.PlayNowParams) (room.PlayNowResponse, error)
	RemoveFromQueue(context.Context, *room.RemoveFromQueueParams) (room.QueueResponse, error)
	ReorderQueue(context.Context, *room.ReorderQueueParams) (room.QueueResponse, error)
	GetQueue(context.Context, *room.GetQueueParams) (room.QueueState, error)
	VideoEnded(context.Context, *room.VideoEndedParams) (room.VideoEndedResponse, error)

	SetReady(context.Context, *room.SetReadyParams) (room.RosterResponse, error)
	MuteMember(context.Context, *room.MuteMemberParams) (room.MuteMemberResponse, error)
	KickMember(context.Context, *room.KickMemberParams) (room.KickMemberResponse, error)
	GetUsers(context.Context, *room.GetUsersParams) ([]room.Member, error)

	ToggleUserControls(context.Context, *room.ToggleParams) (room.SystemStateResponse, error)
	ToggleProxy(context.Context, *room.ToggleParams) (room.SystemStateResponse, error)

	ConnectVoice(context.Context, *room.ConnectVoiceParams) error
	DisconnectVoice(context.Context, *websocket.Conn)
	VoiceRecipients(*websocket.Conn) []*websocket.Conn
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger

	// per-connection write mutexes; gorilla allows one concurrent writer
	// and fanout runs on every sender's goroutine
	writeLocks sync.Map
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	c := controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.New(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return &c
}

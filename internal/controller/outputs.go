package controller

import (
	"github.com/santhosh101066/sync-player/internal/service/room"
)

// Server-to-client messages are flat JSON objects; the embedded service
// models contribute their fields alongside the type tag.

type welcomeOutput struct {
	Type   string `json:"type"`
	UserId string `json:"userId"`
}

type systemStateOutput struct {
	Type string `json:"type"`
	room.SystemState
}

type chatHistoryOutput struct {
	Type     string             `json:"type"`
	Messages []room.ChatMessage `json:"messages"`
}

type userListOutput struct {
	Type  string        `json:"type"`
	Users []room.Member `json:"users"`
}

type chatOutput struct {
	Type string `json:"type"`
	room.ChatMessage
}

type forceSyncOutput struct {
	Type string `json:"type"`
	room.PlayerState
}

type loadOutput struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type queueStateOutput struct {
	Type string `json:"type"`
	room.QueueState
}

type authSuccessOutput struct {
	Type string `json:"type"`
	room.AuthSuccess
}

type typeOnlyOutput struct {
	Type string `json:"type"`
}

type errorOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sessionReplacedOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pongOutput struct {
	Type      string  `json:"type"`
	StartTime float64 `json:"startTime"`
}

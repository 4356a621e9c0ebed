package snapshot

import "errors"

// ErrNoSnapshot is returned by Load when no snapshot has ever been written.
var ErrNoSnapshot = errors.New("no snapshot")

// RoomState is the single persisted document. Participants and chat history
// are intentionally ephemeral and never stored.
type RoomState struct {
	AreUserControlsAllowed bool        `json:"areUserControlsAllowed"`
	IsProxyEnabled         bool        `json:"isProxyEnabled"`
	CurrentVideoState      PlayerState `json:"currentVideoState"`
	VideoQueue             []QueueItem `json:"videoQueue"`
	CurrentQueueIndex      int         `json:"currentQueueIndex"`
}

type PlayerState struct {
	URL       string  `json:"url"`
	Time      float64 `json:"time"`
	Paused    bool    `json:"paused"`
	Timestamp int64   `json:"timestamp"`
}

type QueueItem struct {
	Id        string  `json:"id"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Author    string  `json:"author"`
	Duration  float64 `json:"duration"`
	AddedById string  `json:"addedById"`
	AddedAt   int64   `json:"addedAt"`
}

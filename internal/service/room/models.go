package room

// Player is the authoritative playback tuple. Time is only valid as of
// Timestamp (unix milliseconds); the live position of a playing video is
// Time plus the elapsed wall-clock seconds since then.
type Player struct {
	URL       string  `json:"url"`
	Time      float64 `json:"time"`
	Paused    bool    `json:"paused"`
	Timestamp int64   `json:"timestamp"`
}

// PlayerState is the wire form of the player sent in forceSync messages.
type PlayerState struct {
	URL    string  `json:"url"`
	Time   float64 `json:"time"`
	Paused bool    `json:"paused"`
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

type Member struct {
	Id        string  `json:"id"`
	Nickname  string  `json:"nick"`
	IsAdmin   bool    `json:"isAdmin"`
	IsMuted   bool    `json:"isMuted"`
	IsReady   bool    `json:"isReady"`
	AvatarURL *string `json:"picture,omitempty"`
}

type ChatMessage struct {
	Nickname  string  `json:"nick"`
	Text      string  `json:"text"`
	IsAdmin   bool    `json:"isAdmin"`
	IsSystem  bool    `json:"isSystem"`
	Timestamp int64   `json:"timestamp"`
	AvatarURL *string `json:"picture,omitempty"`
	Image     string  `json:"image,omitempty"`
}

type SystemState struct {
	UserControlsAllowed bool `json:"userControlsAllowed"`
	ProxyEnabled        bool `json:"proxyEnabled"`
}

type QueueState struct {
	Queue        []QueueItem `json:"queue"`
	CurrentIndex int         `json:"currentIndex"`
}

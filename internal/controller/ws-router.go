package controller

import (
	"github.com/santhosh101066/sync-player/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.loggerWSMw())

	// auth
	mux.Handle("auth-google", c.handleAuthGoogle)
	mux.Handle("auth-dev", c.handleAuthDev)

	// chat
	mux.Handle("chat", c.handleChat)

	// player
	mux.Handle("sync", c.handleSync)
	mux.Handle("forceSync", c.handleForceSync)
	mux.Handle("load", c.handleLoad)
	mux.Handle("timeUpdate", c.handleTimeUpdate)
	mux.Handle("video-ended", c.handleVideoEnded)

	// queue
	mux.Handle("queue-add", c.handleQueueAdd)
	mux.Handle("queue-play-next", c.handleQueuePlayNext)
	mux.Handle("queue-play-now", c.handleQueuePlayNow)
	mux.Handle("queue-remove", c.handleQueueRemove)
	mux.Handle("queue-reorder", c.handleQueueReorder)
	mux.Handle("queue-get", c.handleQueueGet)

	// members
	mux.Handle("ready", c.handleReady)
	mux.Handle("mute-user", c.handleMuteUser)
	mux.Handle("kick-user", c.handleKickUser)
	mux.Handle("get-users", c.handleGetUsers)

	// room flags
	mux.Handle("toggle-user-controls", c.handleToggleUserControls)
	mux.Handle("toggle-proxy", c.handleToggleProxy)

	// liveness
	mux.Handle("ping", c.handlePing)

	return mux
}

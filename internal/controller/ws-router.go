package controller

import (
	"github.com/cinewatch/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdMw())
	mux.Use(c.wsLoggingMw())

	// membership
	wsrouter.Handle(mux, "join-room", c.handleJoinRoom)
	wsrouter.Handle(mux, "leave-room", c.handleLeaveRoom)
	wsrouter.Handle(mux, "close-room", c.handleCloseRoom)

	// playback
	wsrouter.Handle(mux, "video-play", c.handleVideoPlay)
	wsrouter.Handle(mux, "video-pause", c.handleVideoPause)
	wsrouter.Handle(mux, "video-seek", c.handleVideoSeek)
	wsrouter.Handle(mux, "episode-change", c.handleEpisodeChange)
	wsrouter.Handle(mux, "sync-request", c.handleSyncRequest)

	return mux
}

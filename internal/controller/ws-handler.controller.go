package controller

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cinewatch/server/internal/service/room"
)

// serveWS upgrades the request and serves the realtime protocol until the
// peer disappears. Handler errors degrade to an error event on the same
// connection; only a read failure ends the session.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	defer c.roomService.HandleDisconnect(r.Context(), conn)

	if err := c.wsmux.ServeConn(r.Context(), conn, c.handleWSError); err != nil {
		c.logger.DebugContext(r.Context(), "websocket connection closed", "error", err)
	}
}

func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	c.logger.InfoContext(ctx, "websocket message failed", "error", err)

	if sendErr := c.sender.Send(conn, room.NewErrorEvent(err.Error())); sendErr != nil {
		c.logger.InfoContext(ctx, "failed to send error event", "error", sendErr)
	}
}

type joinRoomInput struct {
	RoomCode string `json:"roomCode"`
	UserId   string `json:"userId"`
	UserName string `json:"userName"`
}

func (c controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, input joinRoomInput) error {
	return c.roomService.HandleJoinRoom(ctx, conn, &room.JoinRoomEventParams{
		RoomCode: input.RoomCode,
		UserId:   input.UserId,
		UserName: input.UserName,
	})
}

type leaveRoomInput struct {
	RoomCode string `json:"roomCode"`
}

func (c controller) handleLeaveRoom(ctx context.Context, conn *websocket.Conn, input leaveRoomInput) error {
	return c.roomService.HandleLeaveRoom(ctx, conn, input.RoomCode)
}

type playbackInput struct {
	RoomCode    string  `json:"roomCode"`
	CurrentTime float64 `json:"currentTime"`
	UserId      string  `json:"userId"`
}

func (c controller) handleVideoPlay(ctx context.Context, conn *websocket.Conn, input playbackInput) error {
	return c.roomService.HandleVideoPlay(ctx, conn, &room.PlaybackEventParams{
		RoomCode:    input.RoomCode,
		CurrentTime: input.CurrentTime,
		UserId:      input.UserId,
	})
}

func (c controller) handleVideoPause(ctx context.Context, conn *websocket.Conn, input playbackInput) error {
	return c.roomService.HandleVideoPause(ctx, conn, &room.PlaybackEventParams{
		RoomCode:    input.RoomCode,
		CurrentTime: input.CurrentTime,
		UserId:      input.UserId,
	})
}

func (c controller) handleVideoSeek(ctx context.Context, conn *websocket.Conn, input playbackInput) error {
	return c.roomService.HandleVideoSeek(ctx, conn, &room.PlaybackEventParams{
		RoomCode:    input.RoomCode,
		CurrentTime: input.CurrentTime,
		UserId:      input.UserId,
	})
}

type episodeChangeInput struct {
	RoomCode     string `json:"roomCode"`
	ServerIndex  int    `json:"serverIndex"`
	EpisodeIndex int    `json:"episodeIndex"`
	UserId       string `json:"userId"`
}

func (c controller) handleEpisodeChange(ctx context.Context, conn *websocket.Conn, input episodeChangeInput) error {
	return c.roomService.HandleEpisodeChange(ctx, conn, &room.EpisodeChangeParams{
		RoomCode:     input.RoomCode,
		ServerIndex:  input.ServerIndex,
		EpisodeIndex: input.EpisodeIndex,
		UserId:       input.UserId,
	})
}

type syncRequestInput struct {
	RoomCode string `json:"roomCode"`
}

func (c controller) handleSyncRequest(ctx context.Context, conn *websocket.Conn, input syncRequestInput) error {
	return c.roomService.HandleSyncRequest(ctx, conn, input.RoomCode)
}

type closeRoomInput struct {
	RoomCode string `json:"roomCode"`
}

func (c controller) handleCloseRoom(ctx context.Context, conn *websocket.Conn, input closeRoomInput) error {
	return c.roomService.HandleCloseRoom(ctx, conn, input.RoomCode)
}

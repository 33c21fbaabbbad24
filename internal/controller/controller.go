package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cinewatch/server/internal/domain"
	"github.com/cinewatch/server/internal/identity"
	"github.com/cinewatch/server/internal/service/room"
	"github.com/cinewatch/server/pkg/validator"
	"github.com/cinewatch/server/pkg/wsrouter"
)

type iRoomService interface {
	// lifecycle
	CreateRoom(context.Context, *room.CreateRoomParams) (domain.WatchRoom, error)
	ListRooms(context.Context) ([]domain.WatchRoom, error)
	GetRoom(ctx context.Context, roomCode string) (domain.WatchRoom, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	CloseRoom(context.Context, *room.CloseRoomParams) error
	// realtime
	HandleJoinRoom(context.Context, *websocket.Conn, *room.JoinRoomEventParams) error
	HandleLeaveRoom(ctx context.Context, conn *websocket.Conn, roomCode string) error
	HandleVideoPlay(context.Context, *websocket.Conn, *room.PlaybackEventParams) error
	HandleVideoPause(context.Context, *websocket.Conn, *room.PlaybackEventParams) error
	HandleVideoSeek(context.Context, *websocket.Conn, *room.PlaybackEventParams) error
	HandleEpisodeChange(context.Context, *websocket.Conn, *room.EpisodeChangeParams) error
	HandleSyncRequest(ctx context.Context, conn *websocket.Conn, roomCode string) error
	HandleCloseRoom(ctx context.Context, conn *websocket.Conn, roomCode string) error
	HandleDisconnect(ctx context.Context, conn *websocket.Conn)
}

type iSender interface {
	Send(conn *websocket.Conn, v any) error
}

type controller struct {
	roomService iRoomService
	resolver    identity.Resolver
	sender      iSender
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomService iRoomService, resolver identity.Resolver, sender iSender, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		resolver:    resolver,
		sender:      sender,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
